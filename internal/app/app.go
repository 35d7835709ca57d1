package app

import (
	"go.uber.org/fx"

	"github.com/jsMelius/Gleisure/internal/cache"
	"github.com/jsMelius/Gleisure/internal/config"
	"github.com/jsMelius/Gleisure/internal/database"
	"github.com/jsMelius/Gleisure/internal/logger"
	"github.com/jsMelius/Gleisure/internal/messaging"
	"github.com/jsMelius/Gleisure/internal/notifier"
	"github.com/jsMelius/Gleisure/internal/observability"
	repositorycustomer "github.com/jsMelius/Gleisure/internal/repository/customer"
	repositoryorder "github.com/jsMelius/Gleisure/internal/repository/order"
	grpcserver "github.com/jsMelius/Gleisure/internal/server/grpc"
	httpserver "github.com/jsMelius/Gleisure/internal/server/http"
	servicecustomer "github.com/jsMelius/Gleisure/internal/service/customer"
	serviceorder "github.com/jsMelius/Gleisure/internal/service/order"
	transporthttp "github.com/jsMelius/Gleisure/internal/transport/http"
	transportws "github.com/jsMelius/Gleisure/internal/transport/ws"
	"github.com/jsMelius/Gleisure/internal/worker"
	workerorder "github.com/jsMelius/Gleisure/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositorycustomer.Module,
	repositoryorder.Module,
	servicecustomer.Module,
	serviceorder.Module,
)

// HTTP wires the HTTP and websocket transports, the change notifier, and the
// gRPC health surface on top of the core modules.
var HTTP = fx.Options(
	Core,
	notifier.Module,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
	transportws.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
