package api

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cphhousing/config"
	"cphhousing/internal/aggregation"
	"cphhousing/internal/dataset"
	"cphhousing/internal/geometry"
	"cphhousing/internal/models"
	"cphhousing/internal/palette"
	"cphhousing/internal/pricing"
	"cphhousing/internal/search"
)

// Geocoder resolves free text addresses.
type Geocoder interface {
	Geocode(ctx context.Context, text string) models.GeocodeResult
}

type Handler struct {
	cfg      *config.Config
	data     *dataset.Cache
	geocoder Geocoder
	searcher *search.Searcher
	logger   *logrus.Logger
}

type MapQuery struct {
	From      *int   `form:"from"`
	To        *int   `form:"to"`
	Attribute string `form:"attribute"`
	Scale     string `form:"scale"`
	Palette   string `form:"palette"`
}

type SearchQuery struct {
	Address       string `form:"address" binding:"required"`
	MinAddresses  *int   `form:"min_addresses" binding:"omitempty,min=0"`
	MinApartments *int   `form:"min_apartments" binding:"omitempty,min=0"`
	Palette       string `form:"palette"`
}

type option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

func NewHandler(cfg *config.Config, data *dataset.Cache, geocoder Geocoder, searcher *search.Searcher, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Handler{
		cfg:      cfg,
		data:     data,
		geocoder: geocoder,
		searcher: searcher,
		logger:   logger,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GetOptions lists everything the dashboard selectors offer.
func (h *Handler) GetOptions(c *gin.Context) {
	apartments, err := h.data.Apartments(h.cfg.Data.ApartmentLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load apartments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load apartments"})
		return
	}

	attributes := make([]option, 0, len(models.Attributes))
	for _, a := range models.Attributes {
		attributes = append(attributes, option{Value: string(a), Label: a.Label()})
	}
	scales := make([]option, 0, len(models.Scales))
	for _, s := range models.Scales {
		scales = append(scales, option{Value: string(s), Label: s.Label()})
	}

	years := apartments.Years()
	defaults := gin.H{
		"attribute":      models.AttributeAdjustedPrice,
		"scale":          models.ScaleUnits,
		"palette":        h.cfg.Palette.Default,
		"min_addresses":  h.cfg.Search.MinAddresses,
		"min_apartments": h.cfg.Search.MinApartments,
	}
	if len(years) > 0 {
		defaults["from"] = years[0]
		defaults["to"] = years[len(years)-1]
	}

	c.JSON(http.StatusOK, gin.H{
		"years":      years,
		"attributes": attributes,
		"scales":     scales,
		"palettes":   palette.List(),
		"defaults":   defaults,
		"views":      config.Views,
	})
}

// GetMap renders the overview map for a year range, attribute and scale.
func (h *Handler) GetMap(c *gin.Context) {
	var q MapQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.WithError(err).Warn("Invalid map query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	attr := models.AttributeAdjustedPrice
	if q.Attribute != "" {
		attr = models.Attribute(q.Attribute)
	}
	if !attr.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown attribute: " + q.Attribute})
		return
	}
	scale := models.ScaleUnits
	if q.Scale != "" {
		scale = models.Scale(q.Scale)
	}
	if !scale.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown scale: " + q.Scale})
		return
	}
	colors, ok := h.colors(c, q.Palette)
	if !ok {
		return
	}

	apartments, err := h.data.Apartments(h.cfg.Data.ApartmentLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load apartments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load apartments"})
		return
	}

	years := apartments.Years()
	from, to := 0, 0
	if len(years) > 0 {
		from, to = years[0], years[len(years)-1]
	}
	if q.From != nil {
		from = *q.From
	}
	if q.To != nil {
		to = *q.To
	}
	if from > to {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return
	}

	src := aggregation.Sources{Apartments: apartments.FilterYears(from, to)}
	switch scale {
	case models.ScalePostal:
		src.Postal, err = h.data.PostalRegions()
	case models.ScaleParish:
		src.Parish, err = h.data.ParishRegions()
	}
	if err != nil {
		h.logger.WithError(err).WithField("scale", scale).Error("Failed to load regions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load regions"})
		return
	}

	layer, err := aggregation.Build(scale, src, attr, colors)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":  from,
		"to":    to,
		"rows":  len(src.Apartments),
		"view":  config.GetViewByName("copenhagen"),
		"layer": layer,
	})
}

// Geocode washes a single address.
func (h *Handler) Geocode(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address is required"})
		return
	}

	result := h.geocoder.Geocode(c.Request.Context(), address)
	if !result.Found() {
		c.JSON(http.StatusNotFound, gin.H{"error": "No match for address"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Search geocodes an address and walks outwards from it until enough
// sales were found.
func (h *Handler) Search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.WithError(err).Warn("Invalid search query")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	thresholds := search.Thresholds{
		MinAddresses:  h.cfg.Search.MinAddresses,
		MinApartments: h.cfg.Search.MinApartments,
	}
	if q.MinAddresses != nil {
		thresholds.MinAddresses = *q.MinAddresses
	}
	if q.MinApartments != nil {
		thresholds.MinApartments = *q.MinApartments
	}
	colors, ok := h.colors(c, q.Palette)
	if !ok {
		return
	}

	match := h.geocoder.Geocode(c.Request.Context(), q.Address)
	if !match.HasCoordinates() {
		c.JSON(http.StatusNotFound, gin.H{"error": "Address could not be located"})
		return
	}

	apartments, err := h.data.Apartments(h.cfg.Data.ApartmentLimit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load apartments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load apartments"})
		return
	}

	result, err := h.searcher.ExpandFrom(c.Request.Context(), apartments, match, thresholds)
	switch {
	case errors.Is(err, search.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":         err.Error(),
			"match":         match,
			"summary":       aggregation.SearchSummary(result),
			"total_visited": result.TotalVisited,
			"points":        result.Points,
		})
		return
	case err != nil:
		h.logger.WithError(err).WithField("address", q.Address).Error("Search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	seed := match.Point()
	prices := adjustedPrices(result.Rows)
	c.JSON(http.StatusOK, gin.H{
		"match":         match,
		"summary":       aggregation.SearchSummary(result),
		"progress":      result.Progress,
		"total_visited": result.TotalVisited,
		"total_condos":  result.TotalCondos,
		"points":        result.Points,
		"mean_price":    pricing.FormatPrice(pricing.Mean(prices), 0),
		"median_price":  pricing.FormatPrice(pricing.Median(prices), 0),
		"view":          config.GetViewByName("search").CenteredOn(seed.Latitude, seed.Longitude),
		"layer":         aggregation.SearchResult(result, colors),
		"footprint":     geometry.FootprintFeature(result),
	})
}

func (h *Handler) colors(c *gin.Context, name string) ([]palette.RGB, bool) {
	if name == "" {
		name = h.cfg.Palette.Default
	}
	colors, err := palette.Get(name, pricing.PaletteSize)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return colors, true
}

func adjustedPrices(rows []models.Apartment) []float64 {
	prices := make([]float64, len(rows))
	for i := range rows {
		prices[i] = rows[i].AdjustedPrice
	}
	return prices
}
