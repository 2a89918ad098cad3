package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/member-registry/internal/api/dto"
	"github.com/spec-kit/member-registry/internal/domain"
	"github.com/spec-kit/member-registry/internal/observability"
	"github.com/spec-kit/member-registry/internal/service"
	apperrors "github.com/spec-kit/member-registry/pkg/util/errorutil"
)

const dobLayout = "02/01/2006"

// MembersHandler exposes member CRUD and bulk intake.
type MembersHandler struct {
	members *service.MemberService
	metrics *observability.Metrics
}

// NewMembersHandler constructs handler.
func NewMembersHandler(memberService *service.MemberService, metrics *observability.Metrics) *MembersHandler {
	return &MembersHandler{members: memberService, metrics: metrics}
}

// Create handles POST /api/v1/members.
func (h *MembersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	input, err := toCreateInput(req)
	if err != nil {
		return err
	}

	member, err := h.members.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	if h.metrics != nil {
		h.metrics.RecordRegistration(string(domain.ChannelWeb))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// CreateBulk handles POST /api/v1/members/bulk. Rows fail independently.
func (h *MembersHandler) CreateBulk(c *fiber.Ctx) error {
	var req dto.BulkCreateMembersRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if len(req.Members) == 0 {
		return fiber.NewError(http.StatusBadRequest, "members list is empty")
	}

	inputs := make([]service.CreateInput, 0, len(req.Members))
	parseErrs := make(map[int]error, len(req.Members))
	for i, row := range req.Members {
		input, err := toCreateInput(row)
		if err != nil {
			parseErrs[i] = err
			input = service.CreateInput{}
		}
		inputs = append(inputs, input)
	}

	resp := dto.BulkCreateMembersResponse{Results: make([]dto.BulkRowResult, 0, len(inputs))}
	results := h.members.CreateBulk(c.UserContext(), inputs)
	for _, result := range results {
		row := dto.BulkRowResult{Index: result.Index}
		if parseErr, bad := parseErrs[result.Index]; bad {
			row.Error = apperrors.ToDomainError(parseErr).Message
			resp.Failed++
		} else if result.Err != nil {
			row.Error = apperrors.ToDomainError(result.Err).Message
			resp.Failed++
		} else {
			row.Member = dto.NewMemberResponse(result.Member)
			resp.Created++
			if h.metrics != nil {
				h.metrics.RecordRegistration(string(domain.ChannelWeb))
			}
		}
		resp.Results = append(resp.Results, row)
	}

	status := http.StatusCreated
	if resp.Created == 0 {
		status = http.StatusUnprocessableEntity
	} else if resp.Failed > 0 {
		status = http.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{"data": resp})
}

// Update handles PUT /api/v1/members/:id.
func (h *MembersHandler) Update(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid id")
	}

	var req dto.CreateMemberRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	input, err := toCreateInput(req)
	if err != nil {
		return err
	}

	member, err := h.members.Update(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// List handles GET /api/v1/members with offset/limit paging.
func (h *MembersHandler) List(c *fiber.Ctx) error {
	offset := c.QueryInt("offset", 0)
	limit := c.QueryInt("limit", 50)
	members, err := h.members.List(c.UserContext(), offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": membersToResponse(members)})
}

// Get handles GET /api/v1/members/:id.
func (h *MembersHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	member, err := h.members.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// GetByNRC handles GET /api/v1/members/nrc/*. The NRC is matched as a
// wildcard because the value itself contains slashes.
func (h *MembersHandler) GetByNRC(c *fiber.Ctx) error {
	nrc := c.Params("*")
	if nrc == "" {
		return fiber.NewError(http.StatusBadRequest, "nrc required")
	}
	member, err := h.members.GetByNRC(c.UserContext(), nrc)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// GetByVotersID handles GET /api/v1/members/voters/:voters_id.
func (h *MembersHandler) GetByVotersID(c *fiber.Ctx) error {
	votersID := c.Params("voters_id")
	if votersID == "" {
		return fiber.NewError(http.StatusBadRequest, "voters_id required")
	}
	member, err := h.members.GetByVotersID(c.UserContext(), votersID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewMemberResponse(member)})
}

// ListByWard handles GET /api/v1/members/ward/:id.
func (h *MembersHandler) ListByWard(c *fiber.Ctx) error {
	wardID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid ward id")
	}
	members, err := h.members.ListByWard(c.UserContext(), wardID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": membersToResponse(members)})
}

// Delete handles DELETE /api/v1/members/:id.
func (h *MembersHandler) Delete(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid id")
	}
	if err := h.members.Delete(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func toCreateInput(req dto.CreateMemberRequest) (service.CreateInput, error) {
	dob, err := time.Parse(dobLayout, req.DateOfBirth)
	if err != nil {
		return service.CreateInput{}, apperrors.NewValidationError("date_of_birth must be DD/MM/YYYY", map[string]any{"value": req.DateOfBirth})
	}
	switch req.Gender {
	case domain.GenderMale, domain.GenderFemale, domain.GenderOther:
	default:
		return service.CreateInput{}, apperrors.NewValidationError("gender must be MALE, FEMALE or OTHER", map[string]any{"value": req.Gender})
	}
	return service.CreateInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Gender:      req.Gender,
		DateOfBirth: dob,
		NRC:         req.NRC,
		VotersID:    req.VotersID,
		Phone:       req.Phone,
		WardID:      req.WardID,
		Channel:     domain.ChannelWeb,
	}, nil
}

func membersToResponse(members []domain.Member) []*dto.MemberResponse {
	out := make([]*dto.MemberResponse, 0, len(members))
	for i := range members {
		out = append(out, dto.NewMemberResponse(&members[i]))
	}
	return out
}
