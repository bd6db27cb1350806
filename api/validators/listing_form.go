package validators

import (
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coolmotors/coolmotors-backend/internal/listings"
	"github.com/coolmotors/coolmotors-backend/pkg/enums"
	pkgerrors "github.com/coolmotors/coolmotors-backend/pkg/errors"
)

const minListingYear = 1900

// listingFields is the multipart form shape of a submission, validated before
// any enum parsing or file reads.
type listingFields struct {
	Make               string  `json:"make" validate:"required"`
	Model              string  `json:"model" validate:"required"`
	Variant            string  `json:"variant"`
	Year               int     `json:"year" validate:"required"`
	Price              int64   `json:"price" validate:"min=0"`
	FuelType           string  `json:"fuelType" validate:"required"`
	Transmission       string  `json:"transmission" validate:"required"`
	EngineDisplacement float64 `json:"engineDisplacement" validate:"min=0,max=10"`
	EngineType         string  `json:"engineType"`
	Odometer           int64   `json:"odometer" validate:"min=0"`
	Ownership          int     `json:"ownership" validate:"required,min=1"`
	State              string  `json:"state" validate:"required"`
	Location           string  `json:"location" validate:"required"`
	Description        string  `json:"description" validate:"required,max=2000"`
}

// ParseListingForm decodes and validates a multipart listing submission into
// the pipeline input, leaving the actor for the caller to fill in. The body
// is capped at maxUploadBytes across all fields and files combined.
func ParseListingForm(w http.ResponseWriter, r *http.Request, maxUploadBytes int64) (*listings.SubmitInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "upload too large").
				WithDetails(map[string]any{"maxBytes": tooLarge.Limit})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form").
			WithDetails(map[string]any{"error": err.Error()})
	}

	fields, err := decodeListingFields(r)
	if err != nil {
		return nil, err
	}
	if err := validate.Struct(fields); err != nil {
		return nil, formatValidationErrors(err)
	}

	details := map[string]string{}
	if currentYear := time.Now().Year(); fields.Year < minListingYear || fields.Year > currentYear {
		details["year"] = fmt.Sprintf("must be between %d and %d", minListingYear, currentYear)
	}

	fuel, err := enums.ParseFuelType(fields.FuelType)
	if err != nil {
		details["fuelType"] = "is invalid"
	}
	transmission, err := enums.ParseTransmission(fields.Transmission)
	if err != nil {
		details["transmission"] = "is invalid"
	}
	region, err := enums.ParseRegion(fields.State)
	if err != nil {
		details["state"] = "is invalid"
	}

	var displacement *float64
	if fields.EngineDisplacement != 0 {
		if math.Round(fields.EngineDisplacement*10) != fields.EngineDisplacement*10 {
			details["engineDisplacement"] = "can have at most one decimal place"
		} else {
			displacement = &fields.EngineDisplacement
		}
	}

	var engineType *enums.EngineKind
	if fields.EngineType != "" {
		kind, err := enums.ParseEngineKind(fields.EngineType)
		if err != nil {
			details["engineType"] = "is invalid"
		} else {
			engineType = &kind
		}
	}

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}

	images, err := readImages(r)
	if err != nil {
		return nil, err
	}

	return &listings.SubmitInput{
		Make:               fields.Make,
		Model:              fields.Model,
		Variant:            fields.Variant,
		Year:               fields.Year,
		Price:              fields.Price,
		FuelType:           fuel,
		Transmission:       transmission,
		EngineDisplacement: displacement,
		EngineType:         engineType,
		Odometer:           fields.Odometer,
		Ownership:          fields.Ownership,
		State:              region,
		Location:           fields.Location,
		Description:        fields.Description,
		Images:             images,
	}, nil
}

func decodeListingFields(r *http.Request) (*listingFields, error) {
	fields := &listingFields{
		Make:         formValue(r, "make"),
		Model:        formValue(r, "model"),
		Variant:      formValue(r, "variant"),
		FuelType:     formValue(r, "fuelType"),
		Transmission: formValue(r, "transmission"),
		EngineType:   formValue(r, "engineType"),
		State:        formValue(r, "state"),
		Location:     formValue(r, "location"),
		Description:  formValue(r, "description"),
	}

	details := map[string]string{}
	fields.Year = parseIntField(r, "year", details)
	fields.Price = parseInt64Field(r, "price", details)
	fields.Odometer = parseInt64Field(r, "odometer", details)
	fields.Ownership = parseIntField(r, "ownership", details)
	fields.EngineDisplacement = parseFloatField(r, "engineDisplacement", details)

	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return fields, nil
}

func readImages(r *http.Request) ([]listings.ImageUpload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	files := r.MultipartForm.File["images"]
	uploads := make([]listings.ImageUpload, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded image").
				WithDetails(map[string]any{"file": header.Filename})
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded image").
				WithDetails(map[string]any{"file": header.Filename})
		}
		uploads = append(uploads, listings.ImageUpload{FileName: header.Filename, Data: data})
	}
	return uploads, nil
}

func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.FormValue(key))
}

func parseIntField(r *http.Request, key string, details map[string]string) int {
	raw := formValue(r, key)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		details[key] = "must be a number"
	}
	return value
}

func parseInt64Field(r *http.Request, key string, details map[string]string) int64 {
	raw := formValue(r, key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		details[key] = "must be a number"
	}
	return value
}

func parseFloatField(r *http.Request, key string, details map[string]string) float64 {
	raw := formValue(r, key)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		details[key] = "must be a number"
	}
	return value
}
