package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"github.com/trezcool/shule/client/apiclient"
)

// uploadFile posts data as the multipart file field and decodes the enveloped response.
func uploadFile[T any](ctx context.Context, api *apiclient.Client, path, field, filename string, data []byte) (T, error) {
	var out apiclient.ApiResponse[T]

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return out.Data, errors.Wrap(err, "creating form file")
	}
	if _, err = part.Write(data); err != nil {
		return out.Data, errors.Wrap(err, "writing form file")
	}
	if err = mw.Close(); err != nil {
		return out.Data, errors.Wrap(err, "closing multipart writer")
	}

	res, err := api.Raw(ctx, http.MethodPost, path, &body, mw.FormDataContentType())
	if err != nil {
		return out.Data, err
	}
	defer res.Body.Close()
	err = json.NewDecoder(res.Body).Decode(&out)
	return out.Data, errors.Wrap(err, "decoding response")
}

// download copies the body of a GET to w.
func download(ctx context.Context, api *apiclient.Client, path string, params apiclient.Params, w io.Writer) error {
	if q := params.Encode(); q != "" {
		path += "?" + q
	}
	res, err := api.Raw(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, err = io.Copy(w, res.Body)
	return errors.Wrap(err, "reading download")
}
