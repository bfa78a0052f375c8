package httpclient

import (
	"net/http"
	"slices"
	"strings"
)

// HTTP methods accepted by the client.
const (
	MethodGet     = http.MethodGet
	MethodPost    = http.MethodPost
	MethodPut     = http.MethodPut
	MethodPatch   = http.MethodPatch
	MethodDelete  = http.MethodDelete
	MethodHead    = http.MethodHead
	MethodOptions = http.MethodOptions
	MethodTrace   = http.MethodTrace
	MethodConnect = http.MethodConnect
)

var supportedMethods = []string{
	MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete,
	MethodHead, MethodOptions, MethodTrace, MethodConnect,
}

// ValidMethod reports whether method (case-insensitive) is supported.
func ValidMethod(method string) bool {
	return slices.Contains(supportedMethods, strings.ToUpper(method))
}
