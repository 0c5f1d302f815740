package router

import (
	"net/http"
	"strings"

	"dormlink-backend/internal/api"
	"dormlink-backend/internal/api/endpoints"
	"dormlink-backend/internal/api/middleware"
	"dormlink-backend/internal/chat"
	historyservice "dormlink-backend/internal/service/history"
)

func AdminRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		service := historyservice.New(s.Database())
		publisher := chat.NewPublisher(s.RedisClient())
		paths := endpoints.AdminPaths{
			RoomsPath:   strings.TrimRight(prefix, "/") + "/rooms",
			RoomsPrefix: strings.TrimRight(prefix, "/") + "/rooms/",
		}
		adminEndpoints := endpoints.NewAdminEndpoints(service, publisher, paths)

		mux.HandleFunc(prefix+"/rooms", s.MakeHTTPHandleFunc(adminEndpoints.Rooms, middleware.ValidateAdminJWT))
		mux.HandleFunc(prefix+"/rooms/", s.MakeHTTPHandleFunc(adminEndpoints.RoomActions, middleware.ValidateAdminJWT))
	}
}
