package http

import (
	"go.uber.org/fx"

	customertransport "github.com/jsMelius/Gleisure/internal/transport/http/customer"
	ordertransport "github.com/jsMelius/Gleisure/internal/transport/http/order"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	ordertransport.Module,
	customertransport.Module,
)
