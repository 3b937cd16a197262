package controller

import (
	"github.com/sebadev7/dodi-server/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())

	wsrouter.Handle(mux, "ALIVE", c.handleAlive)
	wsrouter.Handle(mux, "CREATE_SESSION", c.handleCreateSession)
	wsrouter.Handle(mux, "JOIN_SESSION", c.handleJoinSession)
	wsrouter.Handle(mux, "REPORT_STATE", c.handleReportState)
	wsrouter.Handle(mux, "UPDATE_MEDIA", c.handleUpdateMedia)

	return mux
}
