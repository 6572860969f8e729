package utils

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ArowuTest/crownbid-backend/internal/models"
	"github.com/ArowuTest/crownbid-backend/internal/repositories"
)

// ImportResult summarizes one CSV import
type ImportResult struct {
	TotalRows int      `json:"totalRows"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Errors    []string `json:"errors"`
}

// CandidateImporter loads candidates from a spreadsheet export. Existing
// payment references are kept when the row leaves them blank.
type CandidateImporter struct {
	candidates repositories.CandidateRepository
	loc        *time.Location
	now        func() time.Time
}

// NewCandidateImporter creates a new CandidateImporter; bid timestamps
// without a zone are read in loc
func NewCandidateImporter(candidates repositories.CandidateRepository, loc *time.Location) *CandidateImporter {
	if loc == nil {
		loc = time.UTC
	}
	return &CandidateImporter{candidates: candidates, loc: loc, now: time.Now}
}

type candidateColumns struct {
	uid, price, active, name, email, bio, photo, customer, paymentMethod, bidTime int
}

// ImportCandidates reads r and upserts one candidate per row. Row-level
// problems are collected in the result; only an unreadable header is fatal.
func (i *CandidateImporter) ImportCandidates(ctx context.Context, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := candidateColumns{
		uid:           findColumnIndex(header, []string{"uid", "id", "User ID"}),
		price:         findColumnIndex(header, []string{"crownPrice", "Crown Price", "Bid", "Offer"}),
		active:        findColumnIndex(header, []string{"isActive", "Active", "Status"}),
		name:          findColumnIndex(header, []string{"fullName", "Full Name", "Name"}),
		email:         findColumnIndex(header, []string{"email", "Email Address"}),
		bio:           findColumnIndex(header, []string{"bio"}),
		photo:         findColumnIndex(header, []string{"photoUrl", "Photo URL", "Photo"}),
		customer:      findColumnIndex(header, []string{"stripeCustomerId", "Customer ID"}),
		paymentMethod: findColumnIndex(header, []string{"stripeDefaultPaymentMethodId", "defaultPaymentMethodId", "Payment Method"}),
		bidTime:       findColumnIndex(header, []string{"crownPriceUpdatedAt", "Bid Time", "Bid Date"}),
	}
	if cols.uid == -1 {
		return nil, errors.New("uid column not found in CSV")
	}

	result := &ImportResult{Errors: []string{}}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		created, err := i.importRow(ctx, cols, row)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", result.TotalRows, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (i *CandidateImporter) importRow(ctx context.Context, cols candidateColumns, row []string) (bool, error) {
	uid := cell(row, cols.uid)
	if uid == "" {
		return false, errors.New("no uid found")
	}

	candidate, err := i.candidates.FindByID(ctx, uid)
	created := false
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		candidate = &models.Candidate{ID: uid, CreatedAt: models.MillisFromTime(i.now())}
		created = true
	case err != nil:
		return false, err
	}

	if raw := cell(row, cols.price); raw != "" {
		price, err := strconv.ParseFloat(strings.TrimPrefix(strings.ReplaceAll(raw, ",", ""), "$"), 64)
		if err != nil || price < 0 {
			return false, fmt.Errorf("invalid crown price: %s", raw)
		}
		candidate.CrownPrice = &price
	}
	if cols.active != -1 {
		candidate.IsActive = ParseBool(cell(row, cols.active))
	}
	if raw := cell(row, cols.bidTime); raw != "" {
		at, err := ParseDate(raw, i.loc)
		if err != nil {
			return false, err
		}
		candidate.CrownPriceUpdatedAt = models.MillisFromTime(at)
	}
	setIfPresent(&candidate.FullName, cell(row, cols.name))
	setIfPresent(&candidate.Email, cell(row, cols.email))
	setIfPresent(&candidate.Bio, cell(row, cols.bio))
	setIfPresent(&candidate.PhotoURL, cell(row, cols.photo))
	setIfPresent(&candidate.StripeCustomerID, cell(row, cols.customer))
	setIfPresent(&candidate.StripeDefaultPaymentMethodID, cell(row, cols.paymentMethod))
	candidate.UpdatedAt = models.MillisFromTime(i.now())

	if err := i.candidates.Upsert(ctx, candidate); err != nil {
		return false, fmt.Errorf("failed to save candidate: %w", err)
	}
	return created, nil
}

// findColumnIndex finds the index of a column by possible names
func findColumnIndex(header []string, possibleNames []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, name := range possibleNames {
			if strings.ToLower(name) == h {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
