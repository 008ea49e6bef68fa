// Package sheets appends intake submissions as rows of a Google spreadsheet,
// authenticated with a service account.
package sheets

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/intake"
)

type Appender struct {
	Values        *gsheets.SpreadsheetsValuesService
	SpreadsheetID string
	Range         string
}

// NewAppender parses the service-account JSON key and builds the Sheets client.
// Extra options are applied after the credentials.
func NewAppender(ctx context.Context, credentialsJSON []byte, spreadsheetID, rng string, opts ...option.ClientOption) (*Appender, error) {
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse service account: %w", err)
	}
	return newAppender(ctx, spreadsheetID, rng, append([]option.ClientOption{option.WithCredentials(creds)}, opts...)...)
}

func newAppender(ctx context.Context, spreadsheetID, rng string, opts ...option.ClientOption) (*Appender, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Appender{
		Values:        svc.Spreadsheets.Values,
		SpreadsheetID: spreadsheetID,
		Range:         rng,
	}, nil
}

func (a *Appender) Name() string { return "google_sheets" }

func (a *Appender) Deliver(ctx context.Context, sub intake.Submission) error {
	return a.Append(ctx, Row(sub))
}

// Row lays out a submission as timestamp, kind, name, email, company, role, message.
func Row(sub intake.Submission) []any {
	return []any{
		sub.CreatedAt.UTC().Format(time.RFC3339),
		string(sub.Kind),
		sub.Name,
		sub.Email,
		sub.Company,
		sub.Role,
		sub.Message,
	}
}

func (a *Appender) Append(ctx context.Context, row []any) error {
	_, err := a.Values.Append(a.SpreadsheetID, a.Range, &gsheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         [][]any{row},
	}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	return nil
}
