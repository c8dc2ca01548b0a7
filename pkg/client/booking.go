package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"tourdesk/pkg/model"
)

type BookingPage struct {
	Data       []*model.Booking `json:"data"`
	TotalCount int64            `json:"total_count"`
	Limit      int              `json:"limit"`
	Offset     int64            `json:"offset"`
}

// Paginated responses put the page metadata next to "data".
func (*BookingPage) wholeBody() {}

type BookingClient struct {
	httpClient *HttpClient
}

// NewBookingClient expects an HttpClient that carries an Authorizer for the
// staff endpoints.
func NewBookingClient(httpClient *HttpClient) *BookingClient {
	return &BookingClient{httpClient: httpClient}
}

func bookingPath(id string) string {
	return "/api/bookings/" + url.PathEscape(id) + "/"
}

func (c *BookingClient) Create(ctx context.Context, req *model.BookingRequest) (*model.Booking, error) {
	var booking model.Booking
	if err := c.httpClient.Do(ctx, http.MethodPost, "/api/bookings/", req, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Check(ctx context.Context, reference, email string) (*model.Booking, error) {
	q := url.Values{}
	q.Set("reference", reference)
	q.Set("email", email)

	var booking model.Booking
	if err := c.httpClient.Do(ctx, http.MethodGet, "/api/bookings/check/?"+q.Encode(), nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) List(ctx context.Context, status model.Status, limit int, offset int64) (*BookingPage, error) {
	path := fmt.Sprintf("/api/bookings/%s/?limit=%d&offset=%d", status, limit, offset)

	var page BookingPage
	if err := c.httpClient.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *BookingClient) Get(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	if err := c.httpClient.Do(ctx, http.MethodGet, bookingPath(id), nil, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Confirm(ctx context.Context, id string, details *model.ConfirmationDetails) (*model.Booking, error) {
	var booking model.Booking
	if err := c.httpClient.Do(ctx, http.MethodPatch, bookingPath(id)+"confirm/", details, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Update(ctx context.Context, id string, update *model.BookingUpdate) (*model.Booking, error) {
	var booking model.Booking
	if err := c.httpClient.Do(ctx, http.MethodPatch, bookingPath(id), update, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Delete(ctx context.Context, id string) error {
	return c.httpClient.Do(ctx, http.MethodDelete, bookingPath(id), nil, nil)
}

func (c *BookingClient) Stats(ctx context.Context) (*model.BookingStats, error) {
	var stats model.BookingStats
	if err := c.httpClient.Do(ctx, http.MethodGet, "/api/bookings/stats/", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
