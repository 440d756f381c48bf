package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	checkoutdomain "github.com/smallbiznis/flashmarket/internal/checkout/domain"
	"github.com/smallbiznis/flashmarket/internal/config"
	customerdomain "github.com/smallbiznis/flashmarket/internal/customer/domain"
	listingdomain "github.com/smallbiznis/flashmarket/internal/listing/domain"
	"github.com/smallbiznis/flashmarket/internal/observability"
	obsmiddleware "github.com/smallbiznis/flashmarket/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/flashmarket/internal/observability/metrics"
	obstracing "github.com/smallbiznis/flashmarket/internal/observability/tracing"
	purchasedomain "github.com/smallbiznis/flashmarket/internal/purchase/domain"
	"github.com/smallbiznis/flashmarket/internal/ratelimit"
	sellerdomain "github.com/smallbiznis/flashmarket/internal/seller/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if obsCfg.PrometheusEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	market          *config.MarketConfigHolder
	checkoutSvc     checkoutdomain.Service
	purchaseSvc     purchasedomain.Service
	listingSvc      listingdomain.Service
	sellerSvc       sellerdomain.Service
	customerSvc     customerdomain.Service
	obsMetrics      *obsmetrics.Metrics
	checkoutLimiter *ratelimit.CheckoutLimiter
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Market          *config.MarketConfigHolder
	CheckoutSvc     checkoutdomain.Service
	PurchaseSvc     purchasedomain.Service
	ListingSvc      listingdomain.Service
	SellerSvc       sellerdomain.Service
	CustomerSvc     customerdomain.Service
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
	CheckoutLimiter *ratelimit.CheckoutLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		market:          p.Market,
		checkoutSvc:     p.CheckoutSvc,
		purchaseSvc:     p.PurchaseSvc,
		listingSvc:      p.ListingSvc,
		sellerSvc:       p.SellerSvc,
		customerSvc:     p.CustomerSvc,
		obsMetrics:      p.ObsMetrics,
		checkoutLimiter: p.CheckoutLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Checkout --------
	api.POST("/checkout", s.CheckoutRateLimit(), s.CreateCheckoutSession)
	api.GET("/checkout", s.CheckoutMethodNotAllowed)

	// -------- Stripe --------
	api.POST("/stripe/webhook", s.HandleStripeWebhook)
	api.GET("/stripe/webhook", s.StripeWebhookLiveness)
	api.POST("/stripe/customer", s.EnsureCustomer)

	// -------- Sellers --------
	api.GET("/sellers/oauth/authorize", s.AuthorizeSeller)
	api.GET("/sellers/oauth/callback", s.SellerOAuthCallback)
	api.GET("/sellers/:uid", s.GetPayoutAccount)
	api.GET("/sellers/:uid/listings", s.ListSellerListings)

	// -------- Listings --------
	api.GET("/listings", s.ListActiveListings)
	api.GET("/listings/:id", s.GetListing)
	api.POST("/listings/publish", s.PublishListing)
	api.POST("/listings/unpublish", s.UnpublishListing)
	api.PATCH("/listings/:id/price", s.UpdateListingPrice)

	// -------- Purchases --------
	api.GET("/purchases", s.ListPurchases)
	api.GET("/purchases/ownership", s.GetOwnership)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}

func (s *Server) siteURL() string {
	if s.market != nil {
		if site := s.market.Get().SiteURL; site != "" {
			return site
		}
	}
	return s.cfg.SiteURL
}
