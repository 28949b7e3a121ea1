package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes v with the given status
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Data wraps a payload as {"data": ...}
type Data struct {
	Data interface{} `json:"data"`
}

// RenderData writes v wrapped in a data envelope with status 200
func RenderData(w http.ResponseWriter, v interface{}) {
	JSON(w, http.StatusOK, Data{Data: v})
}
