package echoapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/manabi/lms/core/payment"
)

const maxWebhookBody = 1 << 20

type paymentApi struct {
	svc *payment.Service
}

func registerPaymentAPI(g *echo.Group, auth echo.MiddlewareFunc, svc *payment.Service) {
	api := paymentApi{svc: svc}

	pg := g.Group("/payments")

	// called by the payment provider; authenticated by signature
	pg.POST("/webhook", api.webhook)

	ag := pg.Group("", auth)
	ag.POST("/checkout", api.checkout)
	ag.GET("", api.queryMine)
	ag.GET("/:id", api.retrieve)
	ag.POST("/:id/refund", api.refund, adminMiddleware())
}

func (api *paymentApi) checkout(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	var data payment.Checkout
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Checkout")
	}

	o, created, err := api.svc.Checkout(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "checking out")
	}
	return respondCreated(ctx, created, o)
}

func (api *paymentApi) webhook(ctx echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxWebhookBody))
	if err != nil {
		return errors.Wrap(err, "reading webhook body")
	}

	o, err := api.svc.HandleWebhook(ctx.Request().Context(), payload, ctx.Request().Header.Get(payment.SignatureHeader))
	if err != nil {
		return errors.Wrap(err, "handling payment webhook")
	}
	return respond(ctx, http.StatusOK, o)
}

func (api *paymentApi) queryMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	page, err := bindPagination(ctx)
	if err != nil {
		return err
	}

	orders, total, err := api.svc.ListMine(ctx.Request().Context(), usr, ctx.QueryParam("status"), page)
	if err != nil {
		return errors.Wrap(err, "listing orders")
	}
	if orders == nil {
		orders = []payment.Order{}
	}
	return respondPage(ctx, orders, page, total)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	o, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting order")
	}
	return respond(ctx, http.StatusOK, o)
}

func (api *paymentApi) refund(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	o, err := api.svc.Refund(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "refunding order")
	}
	return respond(ctx, http.StatusOK, o)
}
