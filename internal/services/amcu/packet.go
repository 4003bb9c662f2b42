package amcu

import (
	"fmt"
	"strconv"
	"time"

	"dairy-collection-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Packet is one validated pour as decoded from the device.
type Packet struct {
	CustomerExternalID string
	QuantityLitre      float64
	Fat                *float64
	Snf                *float64
	Clr                *float64
	// Amount is set when the device priced the pour itself; the rate
	// is then derived instead of looked up.
	Amount   *decimal.Decimal
	Shift    string
	MilkType string
	Date     time.Time
	Time     string
}

// ParsePacket validates a raw field map and applies defaults. CID and
// QTY are required; shift defaults by clock (morning before local
// noon), date/time default to now.
func ParsePacket(fields Fields, now time.Time) (*Packet, error) {
	cid := fields["CID"]
	if cid == "" {
		return nil, fmt.Errorf("%w: CID", ErrMissingField)
	}

	rawQty := fields["QTY"]
	if rawQty == "" {
		return nil, fmt.Errorf("%w: QTY", ErrMissingField)
	}
	qty, err := strconv.ParseFloat(rawQty, 64)
	if err != nil || qty <= 0 {
		return nil, fmt.Errorf("%w: QTY %q", ErrBadField, rawQty)
	}

	p := &Packet{
		CustomerExternalID: cid,
		QuantityLitre:      qty,
		Fat:                parseOptionalFloat(fields["FAT"]),
		Snf:                parseOptionalFloat(fields["SNF"]),
		Clr:                parseOptionalFloat(fields["CLR"]),
		MilkType:           fields["MILK"],
		Time:               fields["TIME"],
	}

	if raw := fields["AMT"]; raw != "" {
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: AMT %q", ErrBadField, raw)
		}
		p.Amount = &amt
	}

	switch fields["SHIFT"] {
	case models.ShiftMorning, models.ShiftEvening:
		p.Shift = fields["SHIFT"]
	default:
		if now.Hour() < 12 {
			p.Shift = models.ShiftMorning
		} else {
			p.Shift = models.ShiftEvening
		}
	}

	if raw := fields["DATE"]; raw != "" {
		date, err := time.ParseInLocation("2006-01-02", raw, now.Location())
		if err != nil {
			return nil, fmt.Errorf("%w: DATE %q", ErrBadField, raw)
		}
		p.Date = date
	} else {
		p.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}

	if p.Time == "" {
		p.Time = now.Format("15:04:05")
	}

	return p, nil
}

func parseOptionalFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
