package apiclient

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/shule/core"
)

// Params are query parameters. Zero values (empty strings, false, nil, zero dates) are omitted.
type Params map[string]interface{}

// Values converts p to url.Values; slices become repeated keys.
func (p Params) Values() url.Values {
	vals := make(url.Values, len(p))
	for k, v := range p {
		switch val := v.(type) {
		case nil:
		case []string:
			for _, s := range val {
				vals.Add(k, s)
			}
		default:
			if s := format(val); s != "" {
				vals.Set(k, s)
			}
		}
	}
	return vals
}

// Encode serializes p with sorted keys, so equal params always encode the same.
func (p Params) Encode() string {
	vals := p.Values()
	for _, vs := range vals {
		sort.Strings(vs)
	}
	return vals.Encode()
}

// With returns a copy of p with key set to val.
func (p Params) With(key string, val interface{}) Params {
	out := make(Params, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	out[key] = val
	return out
}

// FilterParams builds Params from the `query` tagged fields of a filter struct (or pointer to one).
func FilterParams(filter interface{}) Params {
	p := make(Params)
	v := reflect.Indirect(reflect.ValueOf(filter))
	if v.Kind() != reflect.Struct {
		return p
	}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name := strings.SplitN(t.Field(i).Tag.Get("query"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		fv := v.Field(i)
		if (fv.Kind() == reflect.Ptr || fv.Kind() == reflect.Slice) && fv.IsNil() {
			continue
		}
		p[name] = fv.Interface()
	}
	return p
}

func format(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		if !val {
			return ""
		}
		return "true"
	case *bool:
		if val == nil {
			return ""
		}
		return strconv.FormatBool(*val)
	case int:
		if val == 0 {
			return ""
		}
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case core.Date:
		return val.String()
	case time.Time:
		if val.IsZero() {
			return ""
		}
		return val.UTC().Format(time.RFC3339)
	case []core.DBOrdering:
		fields := make([]string, 0, len(val))
		for _, o := range val {
			if o.Ascending {
				fields = append(fields, o.Field)
			} else {
				fields = append(fields, "-"+o.Field)
			}
		}
		return strings.Join(fields, ",")
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
