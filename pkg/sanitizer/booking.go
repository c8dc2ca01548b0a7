package sanitizer

import (
	"strings"

	"tourdesk/pkg/model"
)

func SanitizeCustomer(c *model.Customer) {
	c.Name = NormalizeName(c.Name)
	c.Email = NormalizeEmail(c.Email)
	c.Phone = NormalizePhone(c.Phone)
}

func SanitizeBookingRequest(req *model.BookingRequest) {
	SanitizeCustomer(&req.Customer)
	req.TourReference = strings.TrimSpace(req.TourReference)
	req.PreferredDate = strings.TrimSpace(req.PreferredDate)
	req.QuotedTotal = NormalizePrice(req.QuotedTotal)
	req.SpecialRequirements = NormalizeText(req.SpecialRequirements)
}

func SanitizeConfirmation(d *model.ConfirmationDetails) {
	d.ConfirmedDate = strings.TrimSpace(d.ConfirmedDate)
	d.ConfirmedTime = strings.TrimSpace(d.ConfirmedTime)
	d.MeetingPoint = TrimAndNormalize(d.MeetingPoint)
	d.AdditionalNotes = NormalizeText(d.AdditionalNotes)
	if d.FinalPrice != nil {
		price := NormalizePrice(*d.FinalPrice)
		d.FinalPrice = &price
	}
}

func SanitizeBookingUpdate(u *model.BookingUpdate) {
	trimPtr(u.PreferredDate, strings.TrimSpace)
	trimPtr(u.SpecialRequirements, NormalizeText)
	trimPtr(u.ConfirmedDate, strings.TrimSpace)
	trimPtr(u.ConfirmedTime, strings.TrimSpace)
	trimPtr(u.MeetingPoint, TrimAndNormalize)
	trimPtr(u.AdditionalNotes, NormalizeText)
	if u.Status != nil {
		s := model.Status(strings.ToLower(strings.TrimSpace(string(*u.Status))))
		u.Status = &s
	}
	if u.FinalPrice != nil {
		price := NormalizePrice(*u.FinalPrice)
		u.FinalPrice = &price
	}
}

func trimPtr(s *string, fn func(string) string) {
	if s != nil {
		*s = fn(*s)
	}
}
