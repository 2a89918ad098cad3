package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-registry/internal/api/dto"
	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/service"
)

// LocationsHandler manages the geographic hierarchy endpoints.
type LocationsHandler struct {
	locations *service.LocationService
}

// NewLocationsHandler constructs handler.
func NewLocationsHandler(locationService *service.LocationService) *LocationsHandler {
	return &LocationsHandler{locations: locationService}
}

// ListProvinces handles GET /api/v1/provinces.
func (h *LocationsHandler) ListProvinces(c *fiber.Ctx) error {
	options, err := h.locations.Provinces(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": optionsToResponse(options, 0)})
}

// CreateProvince handles POST /api/v1/provinces.
func (h *LocationsHandler) CreateProvince(c *fiber.Ctx) error {
	req, err := parseLocationRequest(c)
	if err != nil {
		return err
	}
	province, err := h.locations.CreateProvince(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.LocationResponse{
		ID:   province.ID,
		Name: province.Name,
	}})
}

// ListDistricts handles GET /api/v1/provinces/:id/districts.
func (h *LocationsHandler) ListDistricts(c *fiber.Ctx) error {
	return h.listChildren(c, domain.LevelDistrict)
}

// CreateDistrict handles POST /api/v1/districts.
func (h *LocationsHandler) CreateDistrict(c *fiber.Ctx) error {
	req, err := parseLocationRequest(c)
	if err != nil {
		return err
	}
	district, err := h.locations.CreateDistrict(c.UserContext(), req.Name, req.ParentID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.LocationResponse{
		ID:       district.ID,
		Name:     district.Name,
		ParentID: district.ProvinceID,
	}})
}

// ListConstituencies handles GET /api/v1/districts/:id/constituencies.
func (h *LocationsHandler) ListConstituencies(c *fiber.Ctx) error {
	return h.listChildren(c, domain.LevelConstituency)
}

// CreateConstituency handles POST /api/v1/constituencies.
func (h *LocationsHandler) CreateConstituency(c *fiber.Ctx) error {
	req, err := parseLocationRequest(c)
	if err != nil {
		return err
	}
	constituency, err := h.locations.CreateConstituency(c.UserContext(), req.Name, req.ParentID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.LocationResponse{
		ID:       constituency.ID,
		Name:     constituency.Name,
		ParentID: constituency.DistrictID,
	}})
}

// ListWards handles GET /api/v1/constituencies/:id/wards.
func (h *LocationsHandler) ListWards(c *fiber.Ctx) error {
	return h.listChildren(c, domain.LevelWard)
}

// CreateWard handles POST /api/v1/wards.
func (h *LocationsHandler) CreateWard(c *fiber.Ctx) error {
	req, err := parseLocationRequest(c)
	if err != nil {
		return err
	}
	ward, err := h.locations.CreateWard(c.UserContext(), req.Name, req.ParentID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.LocationResponse{
		ID:       ward.ID,
		Name:     ward.Name,
		ParentID: ward.ConstituencyID,
	}})
}

// Delete handles DELETE /api/v1/{tier}/:id. The tier is bound at route
// registration time.
func (h *LocationsHandler) Delete(level domain.LocationLevel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := pathID(c)
		if err != nil {
			return err
		}
		if err := h.locations.Delete(c.UserContext(), level, id); err != nil {
			return err
		}
		return c.SendStatus(http.StatusNoContent)
	}
}

func (h *LocationsHandler) listChildren(c *fiber.Ctx, level domain.LocationLevel) error {
	parentID, err := pathID(c)
	if err != nil {
		return err
	}
	options, err := h.locations.ChildrenOf(c.UserContext(), level, parentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": optionsToResponse(options, parentID)})
}

func parseLocationRequest(c *fiber.Ctx) (*dto.CreateLocationRequest, error) {
	var req dto.CreateLocationRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Name == "" {
		return nil, fiber.NewError(http.StatusBadRequest, "name required")
	}
	return &req, nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func optionsToResponse(options []domain.LocationOption, parentID int64) []dto.LocationResponse {
	out := make([]dto.LocationResponse, 0, len(options))
	for _, opt := range options {
		out = append(out, dto.LocationResponse{ID: opt.ID, Name: opt.Name, ParentID: parentID})
	}
	return out
}
