package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mtech-resorts/cashdesk/config"
	"github.com/mtech-resorts/cashdesk/internal/auth"
	"github.com/mtech-resorts/cashdesk/internal/db"
	"github.com/mtech-resorts/cashdesk/internal/handlers"
	"github.com/mtech-resorts/cashdesk/internal/middleware"
	"github.com/mtech-resorts/cashdesk/internal/orders"
	"github.com/mtech-resorts/cashdesk/internal/pricing"
	"github.com/mtech-resorts/cashdesk/internal/stats"
	"github.com/mtech-resorts/cashdesk/internal/swap"
	"github.com/mtech-resorts/cashdesk/internal/terminal"
	"github.com/mtech-resorts/cashdesk/internal/ticketing"
	"github.com/mtech-resorts/cashdesk/internal/worker"
	"github.com/mtech-resorts/cashdesk/logging"
)

func main() {
	logger := logging.GetSugaredLogger()
	defer logger.Sync()

	cfg, err := config.GetConfig()
	if err != nil {
		logger.Fatal(err)
	}
	auth.SetSecret(cfg.JWTSecret)

	database, err := db.NewManager(cfg)
	if err != nil {
		logger.Fatal(err)
	}
	defer database.Close()

	terminalClient := terminal.NewClient(cfg.TerminalAddress, cfg.TerminalAPIKey)
	driver := terminal.NewDriver(terminalClient, database, logger, cfg.PaymentPollEvery)
	myth := ticketing.NewMyth(cfg.MythAddress, cfg.MythAPIKey)
	skidata := ticketing.NewSkidata(cfg.SkidataAddress, cfg.SkidataAPIKey)

	orderService := &orders.Service{
		Store:      database,
		Calculator: pricing.NewCalculator(database),
		Terminal:   driver,
		Myth:       myth,
		Skidata:    skidata,
		Logger:     logger,
	}

	reconciler := worker.NewReconciler(database, terminalClient, logger, cfg.ReconcileInterval)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.Run(ctx)

	h := handlers.Handler{
		Config:   cfg,
		Database: database,
		Orders:   orderService,
		Swap:     &swap.Saga{Store: database, Myth: myth, Logger: logger},
		Stats:    stats.NewAggregator(database, logger),
		Myth:     myth,
		Skidata:  skidata,
		Logger:   logger,
	}

	r := initRouter(h)

	err = http.ListenAndServe(cfg.RunAddress, r)
	logger.Fatalw("failed to start server", "error", err)
}

func initRouter(h handlers.Handler) *chi.Mux {
	r := chi.NewRouter()

	public := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			middleware.Conveyor(
				next,
				h.Logger,
				middleware.WriteWithCompression,
				middleware.ReadWithCompression,
			).ServeHTTP(w, req)
		}
	}
	desk := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			middleware.Conveyor(
				next,
				h.Logger,
				middleware.WriteWithCompression,
				middleware.ReadWithCompression,
				middleware.ValidateAuth,
			).ServeHTTP(w, req)
		}
	}
	machine := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, req *http.Request) {
			middleware.Conveyor(
				next,
				h.Logger,
				middleware.WriteWithCompression,
				middleware.ReadWithCompression,
				middleware.APIKey(h.Config.CashDeskAPIKey),
			).ServeHTTP(w, req)
		}
	}

	r.Post(`/api/user/register`, public(h.Register))
	r.Post(`/api/user/login`, public(h.Login))

	r.Get(`/api/cash-desk/orders`, desk(h.SearchOrders))
	r.Get(`/api/cash-desk/orders/{orderID}`, desk(h.GetOrder))
	r.Post(`/api/cash-desk/create-order-intent`, desk(h.CreateOrderIntent))
	r.Post(`/api/cash-desk/submit-order`, desk(h.SubmitOrder))
	r.Post(`/api/cash-desk/orders/{orderID}/price`, desk(h.PriceOrder))
	r.Post(`/api/cash-desk/orders/{orderID}/payment`, desk(h.CollectPayment))
	r.Post(`/api/cash-desk/orders/{orderID}/bypass-payment`, desk(h.BypassPayment))
	r.Delete(`/api/cash-desk/orders/{orderID}`, desk(h.DiscardOrderIntent))
	r.Patch(`/api/cash-desk/orders/{orderID}/test`, desk(h.ToggleTestOrder))
	r.Get(`/api/cash-desk/orders/{orderID}/receipt`, desk(h.Receipt))
	r.Get(`/api/cash-desk/orders/{orderID}/myth`, desk(h.MythOrder))
	r.Get(`/api/cash-desk/orders/{orderID}/skidata`, desk(h.SkidataOrder))
	r.Post(`/api/cash-desk/swap-active-lifepass`, desk(h.SwapLifepass))
	r.Get(`/api/cash-desk/swap-sagas/{sagaID}`, desk(h.GetSwapSaga))
	r.Get(`/api/cash-desk/devices/{code}/orders`, desk(h.OrdersByDevice))
	r.Get(`/api/cash-desk/sessions/{sessionID}`, desk(h.GetSessionLog))
	r.Get(`/api/cash-desk/statistics`, desk(h.Statistics))

	r.Post(`/api/kiosk/retrieve-order`, machine(h.RetrieveOrder))
	r.Post(`/api/click-and-collect/calculate-order-price`, machine(h.CalculateOrderPrice))

	return r
}
