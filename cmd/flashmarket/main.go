package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flashmarket/internal/checkout"
	"github.com/smallbiznis/flashmarket/internal/clock"
	"github.com/smallbiznis/flashmarket/internal/config"
	"github.com/smallbiznis/flashmarket/internal/customer"
	"github.com/smallbiznis/flashmarket/internal/listing"
	"github.com/smallbiznis/flashmarket/internal/observability"
	"github.com/smallbiznis/flashmarket/internal/payment"
	"github.com/smallbiznis/flashmarket/internal/purchase"
	"github.com/smallbiznis/flashmarket/internal/ratelimit"
	"github.com/smallbiznis/flashmarket/internal/seller"
	"github.com/smallbiznis/flashmarket/internal/server"
	"github.com/smallbiznis/flashmarket/internal/storage"
	"go.uber.org/fx"
)

func main() {
	// The store backend decides which infrastructure modules are wired, so
	// it is read before the graph is built.
	cfg := config.Load()

	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		clock.Module,
		storage.Module(cfg.Store.Backend),
		ratelimit.Module,

		// Functional Domains
		payment.Module,
		seller.Module,
		listing.Module,
		customer.Module,
		checkout.Module,
		purchase.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) *snowflake.Node {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		panic(err)
	}
	return node
}
