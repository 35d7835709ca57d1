package main

import (
	"go.uber.org/fx"

	"github.com/jsMelius/Gleisure/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
