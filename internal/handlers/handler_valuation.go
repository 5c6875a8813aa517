package handlers

import (
	"net/http"
	"strings"

	portssvc "github.com/SscSPs/portfolio_ledger/internal/core/ports/services"
	"github.com/SscSPs/portfolio_ledger/internal/dto"
	"github.com/gin-gonic/gin"
)

const defaultQuoteCurrency = "USD"

type valuationHandler struct {
	valuationService portssvc.ValuationSvc
}

// RegisterValuationRoutes registers account valuation, allocation, distribution and price routes.
func RegisterValuationRoutes(rg *gin.RouterGroup, valuationService portssvc.ValuationSvc) {
	h := &valuationHandler{valuationService: valuationService}

	rg.GET("/accounts/:accountID/holdings", h.getAccountHoldings)
	rg.GET("/allocation", h.getAllocation)
	rg.GET("/distribution", h.getDistribution)
	rg.GET("/prices/:assetID", h.getPrice)
}

func quoteCurrency(c *gin.Context) string {
	q := strings.TrimSpace(c.Query("quoteCurrency"))
	if q == "" {
		return defaultQuoteCurrency
	}
	return strings.ToUpper(q)
}

// getAccountHoldings godoc
// @Summary Value the holdings of one account
// @Description Unpriced assets are listed with priced=false and excluded from the total.
// @Tags valuation
// @Produce  json
// @Param   accountID path string true "Account ID"
// @Param   quoteCurrency query string false "ISO currency or asset symbol (default USD)"
// @Success 200 {object} dto.AccountHoldingsResponse
// @Failure 403 {object} map[string]string "Account belongs to another user"
// @Failure 404 {object} map[string]string "Account not found"
// @Security BearerAuth
// @Router /accounts/{accountID}/holdings [get]
func (h *valuationHandler) getAccountHoldings(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	result, err := h.valuationService.GetAccountHoldings(c.Request.Context(), userID, c.Param("accountID"), quoteCurrency(c))
	if err != nil {
		respondError(c, err, "value account holdings")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountHoldingsResponse(result))
}

// getAllocation godoc
// @Summary Portfolio allocation by asset type
// @Tags valuation
// @Produce  json
// @Param   quoteCurrency query string false "ISO currency or asset symbol (default USD)"
// @Success 200 {object} dto.AllocationResponse
// @Security BearerAuth
// @Router /allocation [get]
func (h *valuationHandler) getAllocation(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	result, err := h.valuationService.GetAssetAllocation(c.Request.Context(), userID, quoteCurrency(c))
	if err != nil {
		respondError(c, err, "compute allocation")
		return
	}
	c.JSON(http.StatusOK, dto.ToAllocationResponse(result))
}

// getDistribution godoc
// @Summary Portfolio distribution by platform
// @Tags valuation
// @Produce  json
// @Param   quoteCurrency query string false "ISO currency or asset symbol (default USD)"
// @Success 200 {object} dto.AllocationResponse
// @Security BearerAuth
// @Router /distribution [get]
func (h *valuationHandler) getDistribution(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	result, err := h.valuationService.GetPlatformDistribution(c.Request.Context(), userID, quoteCurrency(c))
	if err != nil {
		respondError(c, err, "compute distribution")
		return
	}
	c.JSON(http.StatusOK, dto.ToAllocationResponse(result))
}

// getPrice godoc
// @Summary Current price of an asset
// @Tags valuation
// @Produce  json
// @Param   assetID path string true "Asset ID"
// @Param   quoteCurrency query string false "ISO currency or asset symbol (default USD)"
// @Success 200 {object} dto.PriceResponse
// @Failure 404 {object} map[string]string "Asset or price not found"
// @Security BearerAuth
// @Router /prices/{assetID} [get]
func (h *valuationHandler) getPrice(c *gin.Context) {
	if _, ok := requireUserID(c); !ok {
		return
	}
	assetID := c.Param("assetID")
	quote := quoteCurrency(c)
	price, err := h.valuationService.GetCurrentPrice(c.Request.Context(), assetID, quote)
	if err != nil {
		respondError(c, err, "get price")
		return
	}
	c.JSON(http.StatusOK, dto.PriceResponse{AssetID: assetID, QuoteCurrency: quote, Price: price})
}
