package spreadsheet

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Books"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Columns of the catalog sheet, in order. Import matches headers by name.
var Columns = []string{
	"Title", "Author", "ISBN", "Genre", "Price", "Stock", "Published Date", "Description", "Cover Image", "Average Rating",
}

// WriteBooks renders the catalog as a single-sheet workbook.
func WriteBooks(w io.Writer, books []model.Book) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(SheetName, "A1", &Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, b := range books {
		published := ""
		if b.PublishedDate != nil {
			published = b.PublishedDate.String()
		}
		var rating interface{}
		if b.AverageRating != nil {
			rating = *b.AverageRating
		}
		price, _ := b.Price.Float64()

		row := []interface{}{
			b.Title, b.Author, b.ISBN, b.Genre, price, b.StockQuantity, published, b.Description, b.CoverImage, rating,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	_, err := f.WriteTo(w)
	return err
}

// RowError describes a skipped row; Row is 1-based as shown in spreadsheet apps.
type RowError struct {
	Row    int
	Reason string
}

// ReadBooks parses the first sheet. Rows that fail validation are skipped and
// reported; a missing required header is an error.
func ReadBooks(r io.Reader) ([]service.BookInput, []RowError, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"title", "author", "isbn", "price"} {
		if _, ok := index[required]; !ok {
			return nil, nil, fmt.Errorf("missing required column %q", required)
		}
	}

	cell := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var (
		books   []service.BookInput
		skipped []RowError
	)
	for i, row := range rows[1:] {
		rowNum := i + 2

		input, reason := parseRow(row, cell)
		if reason != "" {
			skipped = append(skipped, RowError{Row: rowNum, Reason: reason})
			continue
		}
		books = append(books, input)
	}

	logger.Info("Catalog sheet parsed", logger.Fields{
		"sheet":   sheet,
		"books":   len(books),
		"skipped": len(skipped),
	})
	return books, skipped, nil
}

func parseRow(row []string, cell func([]string, string) string) (service.BookInput, string) {
	input := service.BookInput{
		Title:       cell(row, "title"),
		Author:      cell(row, "author"),
		ISBN:        cell(row, "isbn"),
		Genre:       cell(row, "genre"),
		Description: cell(row, "description"),
		CoverImage:  cell(row, "cover image"),
	}
	if input.Title == "" || input.Author == "" || input.ISBN == "" {
		return input, "title, author and isbn are required"
	}
	if len(input.ISBN) > 13 {
		return input, "isbn longer than 13 characters"
	}

	price, err := decimal.NewFromString(cell(row, "price"))
	if err != nil || price.IsNegative() {
		return input, "invalid price"
	}
	input.Price = price.Round(2)

	if raw := cell(row, "stock"); raw != "" {
		stock, err := strconv.Atoi(raw)
		if err != nil || stock < 0 {
			return input, "invalid stock"
		}
		input.StockQuantity = stock
	}

	if raw := cell(row, "published date"); raw != "" {
		date, err := model.ParseDateOnly(raw)
		if err != nil {
			return input, "invalid published date"
		}
		input.PublishedDate = &date
	}

	return input, ""
}
