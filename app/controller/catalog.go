package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	httpdto "github.com/pricewatch-io/pricewatch/app/dto/http"
	"github.com/pricewatch-io/pricewatch/app/entity"
	"github.com/pricewatch-io/pricewatch/app/service"
)

type CatalogController struct {
	catalog *service.CatalogService
}

func NewCatalogController(catalog *service.CatalogService) *CatalogController {
	return &CatalogController{catalog: catalog}
}

func (c *CatalogController) ListStores(ctx echo.Context) error {
	stores, err := c.catalog.ListStores(ctx.Request().Context())
	if err != nil {
		logrus.WithError(err).Error("List stores failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	resp := make([]httpdto.StoreResponse, 0, len(stores))
	for _, store := range stores {
		resp = append(resp, storeResponse(store))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *CatalogController) GetStoreProducts(ctx echo.Context) error {
	storeID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid store id"})
	}

	store, products, err := c.catalog.GetStoreProducts(ctx.Request().Context(), storeID)
	if err != nil {
		if errors.Is(err, service.ErrStoreNotFound) {
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "store not found"})
		}
		logrus.WithError(err).WithField("store_id", storeID).Error("Get store products failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	resp := httpdto.StoreProductsResponse{
		Store:    storeResponse(store),
		Products: make([]httpdto.ProductResponse, 0, len(products)),
	}
	for _, product := range products {
		resp.Products = append(resp.Products, productResponse(product))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *CatalogController) GetProductHistory(ctx echo.Context) error {
	productID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid product id"})
	}

	product, points, err := c.catalog.GetProductHistory(ctx.Request().Context(), productID)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "product not found"})
		}
		logrus.WithError(err).WithField("product_id", productID).Error("Get product history failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	resp := httpdto.ProductHistoryResponse{
		Product: productResponse(product),
		History: make([]httpdto.PricePointResponse, 0, len(points)),
	}
	for _, point := range points {
		resp.History = append(resp.History, pricePointResponse(point))
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (c *CatalogController) RecordPrice(ctx echo.Context) error {
	productID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid product id"})
	}

	var req httpdto.RecordPriceRequest
	if err := ctx.Bind(&req); err != nil {
		logrus.WithError(err).Debug("Failed to bind record price request")
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "invalid request body"})
	}
	if req.Price <= 0 {
		return ctx.JSON(http.StatusBadRequest, httpdto.ErrorResponse{Error: "price must be positive"})
	}

	point, err := c.catalog.RecordPrice(ctx.Request().Context(), productID, req.Price)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			return ctx.JSON(http.StatusNotFound, httpdto.ErrorResponse{Error: "product not found"})
		}
		logrus.WithError(err).WithField("product_id", productID).Error("Record price failed")
		return ctx.JSON(http.StatusInternalServerError, httpdto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"product_id": productID,
		"price":      point.Price,
	}).Info("Price recorded")
	return ctx.JSON(http.StatusCreated, pricePointResponse(point))
}

func storeResponse(store *entity.Store) httpdto.StoreResponse {
	return httpdto.StoreResponse{
		ID:          store.ID,
		Name:        store.Name,
		ShortName:   store.ShortName,
		Description: store.Description,
		BaseURL:     store.BaseURL,
		ImageURL:    store.ImageURL,
	}
}

func productResponse(product *entity.Product) httpdto.ProductResponse {
	return httpdto.ProductResponse{
		ID:       product.ID,
		StoreID:  product.StoreID,
		Supplier: product.Supplier.String,
		Name:     product.Name,
		Brand:    product.Brand,
		Model:    product.Model.String,
		SKU:      product.SKU,
		Link:     product.Link,
		ImageURL: product.ImageURL,
	}
}

func pricePointResponse(point *entity.PricePoint) httpdto.PricePointResponse {
	return httpdto.PricePointResponse{
		Price:        point.Price,
		LastPrice:    point.LastPrice,
		DiscountRate: point.DiscountRate.Float64,
		RecordedAt:   point.RecordedAt,
	}
}
