// Package render writes JSON responses for the REST handlers and middlewares.
package render

import (
	"net/http"

	"github.com/bytedance/sonic"
)

// JSON writes v as a JSON body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) error {
	body, err := sonic.Marshal(v)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// Decode reads a JSON request body into v.
func Decode(req *http.Request, v any) error {
	return sonic.ConfigDefault.NewDecoder(req.Body).Decode(v)
}
