package router

import (
	"net/http"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/api/endpoints"
)

func ChatRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		handler := s.Handler()

		mux.HandleFunc(prefix+"/chat", s.MakeHTTPHandleFunc(handler.Chat))
		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(func(w http.ResponseWriter, r *http.Request) error {
			if r.Method != http.MethodGet {
				return endpoints.MethodHandler(w, r, nil)
			}
			handler.Rooms(w, r)
			return nil
		}))
	}
}
