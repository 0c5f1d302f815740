package router

import (
	"net/http"
	"strings"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/api/endpoints"
	historyservice "dormlink-backend/internal/service/history"
)

func HistoryPublicRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := historyservice.New(s.Database())
		paths := endpoints.HistoryPaths{
			RoomMessagesPrefix: strings.TrimRight(prefix, "/") + "/rooms/",
		}
		historyEndpoints := endpoints.NewHistoryEndpoints(service, paths)

		mux.HandleFunc(prefix+"/rooms/", s.MakeHTTPHandleFunc(historyEndpoints.RoomMessages))
	}
}
