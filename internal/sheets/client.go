// internal/sheets/client.go
package sheets

import (
	"context"
	"fmt"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// CellUpdate одно обновление диапазона ячеек (A1-нотация с именем листа)
type CellUpdate struct {
	Range  string
	Values [][]string
}

// Backend низкоуровневый доступ к таблице. Реализация по умолчанию —
// Google Sheets; в тестах подменяется фейком.
type Backend interface {
	GetValues(ctx context.Context, sheet string) ([][]string, error)
	UpdateRange(ctx context.Context, rangeA1 string, values [][]string) error
	AppendRow(ctx context.Context, sheet string, row []string) error
	BatchUpdate(ctx context.Context, updates []CellUpdate) error
}

// GoogleBackend Backend поверх Google Sheets API v4
type GoogleBackend struct {
	srv           *sheets.Service
	spreadsheetID string
}

// NewGoogleBackend инициализирует клиент Google Sheets. credentialsJSON —
// содержимое ключа сервисного аккаунта; если пусто, берётся credentials.json.
func NewGoogleBackend(ctx context.Context, spreadsheetID, credentialsJSON string) (*GoogleBackend, error) {
	var opt option.ClientOption
	if credentialsJSON != "" {
		opt = option.WithCredentialsJSON([]byte(credentialsJSON))
	} else {
		opt = option.WithCredentialsFile("credentials.json")
	}

	srv, err := sheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации Google API: %w", err)
	}

	return &GoogleBackend{srv: srv, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleBackend) GetValues(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := g.srv.Spreadsheets.Values.Get(g.spreadsheetID, sheet).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return toStrings(resp.Values), nil
}

func (g *GoogleBackend) UpdateRange(ctx context.Context, rangeA1 string, values [][]string) error {
	vr := &sheets.ValueRange{Values: toInterfaces(values)}
	_, err := g.srv.Spreadsheets.Values.Update(g.spreadsheetID, rangeA1, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

func (g *GoogleBackend) AppendRow(ctx context.Context, sheet string, row []string) error {
	vr := &sheets.ValueRange{Values: toInterfaces([][]string{row})}
	_, err := g.srv.Spreadsheets.Values.Append(g.spreadsheetID, sheet, vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (g *GoogleBackend) BatchUpdate(ctx context.Context, updates []CellUpdate) error {
	data := make([]*sheets.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheets.ValueRange{
			Range:  u.Range,
			Values: toInterfaces(u.Values),
		})
	}
	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "USER_ENTERED",
		Data:             data,
	}
	_, err := g.srv.Spreadsheets.Values.BatchUpdate(g.spreadsheetID, req).Context(ctx).Do()
	return err
}

func toInterfaces(values [][]string) [][]interface{} {
	out := make([][]interface{}, len(values))
	for i, row := range values {
		out[i] = make([]interface{}, len(row))
		for j, cell := range row {
			out[i][j] = cell
		}
	}
	return out
}

func toStrings(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = make([]string, len(row))
		for j, cell := range row {
			out[i][j] = fmt.Sprintf("%v", cell)
		}
	}
	return out
}
