package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	listingdomain "github.com/smallbiznis/flashmarket/internal/listing/domain"
)

type publishListingRequest struct {
	SellerUID   string `json:"sellerUid"`
	SellerEmail string `json:"sellerEmail"`
	DeckID      string `json:"deckId"`
	Title       string `json:"title"`
	SubjectID   string `json:"subjectId"`
	CoverEmoji  string `json:"coverEmoji"`
	CardCount   int64  `json:"cardCount"`
	Price       string `json:"price"`
}

type unpublishListingRequest struct {
	SellerUID string `json:"sellerUid"`
	DeckID    string `json:"deckId"`
}

type updatePriceRequest struct {
	SellerUID string `json:"sellerUid"`
	Price     string `json:"price"`
}

func (s *Server) ListActiveListings(c *gin.Context) {
	pageSize, err := parseOptionalInt64(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return
	}
	req := listingdomain.ListActiveRequest{PageToken: strings.TrimSpace(c.Query("page_token"))}
	if pageSize != nil {
		req.PageSize = int(*pageSize)
	}

	resp, err := s.listingSvc.ListActive(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetListing(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	c.Set("listing_id", id)

	listing, err := s.listingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (s *Server) PublishListing(c *gin.Context) {
	var req publishListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Publish(c.Request.Context(), listingdomain.PublishRequest{
		SellerUID:   req.SellerUID,
		SellerEmail: req.SellerEmail,
		DeckID:      req.DeckID,
		Title:       req.Title,
		SubjectID:   req.SubjectID,
		CoverEmoji:  req.CoverEmoji,
		CardCount:   req.CardCount,
		Price:       req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Set("listing_id", listing.ID)
	c.JSON(http.StatusOK, listing)
}

func (s *Server) UnpublishListing(c *gin.Context) {
	var req unpublishListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Unpublish(c.Request.Context(), req.SellerUID, req.DeckID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

// UpdateListingPrice takes the listing id in the path; it must belong to
// the seller in the body.
func (s *Server) UpdateListingPrice(c *gin.Context) {
	var req updatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	sellerUID := strings.TrimSpace(req.SellerUID)
	prefix := sellerUID + "__"
	if sellerUID == "" || !strings.HasPrefix(id, prefix) {
		AbortWithError(c, listingdomain.ErrInvalidID)
		return
	}
	c.Set("listing_id", id)

	listing, err := s.listingSvc.UpdatePrice(c.Request.Context(), listingdomain.UpdatePriceRequest{
		SellerUID: sellerUID,
		DeckID:    strings.TrimPrefix(id, prefix),
		Price:     req.Price,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}
