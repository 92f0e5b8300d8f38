package marketdata

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/models"
)

// MaxFilings is the number of dilution filings kept per ticker
const MaxFilings = 5

// SECClient searches sec-api.io for registration filings
type SECClient struct {
	rest   *restClient
	apiKey string
}

// NewSECClient creates a new sec-api.io client
func NewSECClient(baseURL, apiKey string, timeout time.Duration, log logrus.FieldLogger) *SECClient {
	return &SECClient{
		rest:   newRestClient("sec-api", baseURL, timeout, log),
		apiKey: apiKey,
	}
}

type secFilingsResponse struct {
	Filings []secFiling `json:"filings"`
}

type secFiling struct {
	FormType             string    `json:"formType"`
	FiledAt              string    `json:"filedAt"`
	FilingDate           string    `json:"filingDate"`
	MaxSharesOffered     flexFloat `json:"maximumSharesToBeOffered"`
	SharesPreviouslySold flexFloat `json:"totalSharesPreviouslySold"`
}

var filingDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// DilutionFilings returns up to MaxFilings S-1, S-3 and 424B5 filings for
// ticker, most recent first.
func (c *SECClient) DilutionFilings(ctx context.Context, ticker string) ([]models.Filing, bool) {
	params := map[string]string{
		"token": c.apiKey,
		"query": filingsQuery(ticker),
	}

	var resp secFilingsResponse
	if !c.rest.getJSON(ctx, "", params, &resp) {
		return nil, false
	}

	filings := make([]models.Filing, 0, len(resp.Filings))
	for _, f := range resp.Filings {
		if !models.IsDilutionForm(f.FormType) {
			continue
		}
		filings = append(filings, models.Filing{
			FormType:             f.FormType,
			MaxSharesOffered:     float64(f.MaxSharesOffered),
			SharesPreviouslySold: float64(f.SharesPreviouslySold),
			FiledAt:              f.filedAt(),
		})
	}

	sort.SliceStable(filings, func(i, j int) bool {
		return filings[i].FiledAt.After(filings[j].FiledAt)
	})
	if len(filings) > MaxFilings {
		filings = filings[:MaxFilings]
	}
	return filings, true
}

func filingsQuery(ticker string) string {
	return fmt.Sprintf("entityTicker:%s AND formType:(%s) sort:filingDate:desc",
		ticker, strings.Join(models.DilutionForms, " OR "))
}

func (f secFiling) filedAt() time.Time {
	for _, raw := range []string{f.FiledAt, f.FilingDate} {
		if raw == "" {
			continue
		}
		for _, layout := range filingDateLayouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}
