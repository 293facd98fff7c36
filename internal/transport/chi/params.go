package chi

import (
	"errors"
	"net/http"
	"slices"

	gochi "github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/catalogd/internal/domain"
	domcat "github.com/kailas-cloud/catalogd/internal/domain/catalog"
)

// queryDecoder is safe for concurrent use; it caches struct metadata.
var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// decodeQuery fills dst from the URL query. The first offending key is
// reported as the validation field.
func decodeQuery(r *http.Request, dst any) error {
	err := queryDecoder.Decode(dst, r.URL.Query())
	if err == nil {
		return nil
	}
	var multi schema.MultiError
	if errors.As(err, &multi) && len(multi) > 0 {
		keys := make([]string, 0, len(multi))
		for k := range multi {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return domain.NewValidationError(keys[0], "invalid value")
	}
	return domain.NewValidationError("query", "invalid query parameters")
}

// pathParam binds a required simple-style path segment. Percent-encoded
// segments (record IDs such as "org%2Fmodel") are unescaped.
func pathParam(r *http.Request, name string) (string, error) {
	var v string
	err := runtime.BindStyledParameterWithOptions("simple", name, gochi.URLParam(r, name), &v,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", domain.NewValidationError(name, "invalid path parameter")
	}
	if v == "" {
		return "", domain.NewValidationError(name, "is required")
	}
	return v, nil
}

func kindParam(r *http.Request) (domcat.Kind, error) {
	raw, err := pathParam(r, "kind")
	if err != nil {
		return "", err
	}
	return domcat.ParseKind(raw)
}
