// Package controllers holds the HTTP handlers. Every handler answers HTML by
// default and JSON when the client asks for it or the route is under /api.
package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"inkwell/app/forms"
	"inkwell/app/repositories"
	"inkwell/app/services"
	"inkwell/app/views"

	"github.com/gorilla/mux"
)

// wantsJSON reports whether the response should be JSON.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}

func sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, r *http.Request, message string, status int) {
	if wantsJSON(r) {
		sendJSON(w, status, map[string]string{"error": message})
		return
	}
	http.Error(w, message, status)
}

// sendFailure maps a service error to a response. Missing content is a 404,
// everything else is logged and reported as a 500.
func sendFailure(w http.ResponseWriter, r *http.Request, err error) {
	if services.IsNotFound(err) {
		sendError(w, r, "Not Found", http.StatusNotFound)
		return
	}
	log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	sendError(w, r, "Internal Server Error", http.StatusInternalServerError)
}

// sendInvalid reports field errors as JSON with status 422.
func sendInvalid(w http.ResponseWriter, ve forms.ValidationErrors) {
	sendJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation failed",
		"fields": ve,
	})
}

// input reads the submitted fields from a JSON object or an urlencoded form.
// Non-string JSON scalars are kept in their text form so that validation,
// not decoding, decides whether they are acceptable.
func input(r *http.Request) (url.Values, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
		values := make(url.Values, len(body))
		for k, v := range body {
			switch v := v.(type) {
			case nil:
			case string:
				values.Set(k, v)
			case map[string]interface{}, []interface{}:
			default:
				values.Set(k, fmt.Sprint(v))
			}
		}
		return values, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	return r.PostForm, nil
}

func intVar(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, repositories.ErrNotFound)
	}
	return v, nil
}

// render writes an HTML page, turning template failures into a 500.
func render(w http.ResponseWriter, r *http.Request, renderer *views.Renderer, status int, page string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf bytes.Buffer
	if err := renderer.Render(&buf, page, data); err != nil {
		w.Header().Del("Content-Type")
		sendFailure(w, r, err)
		return
	}
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// sidebar computes the sidebar for an HTML page. A failure only loses the
// sidebar, never the page.
func sidebar(posts *services.PostService) *services.Sidebar {
	sb, err := posts.Sidebar()
	if err != nil {
		log.Printf("sidebar: %v", err)
		return nil
	}
	return sb
}
