package api

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/JakeFAU/annual-report-harvester/internal/harvest"
	"github.com/JakeFAU/annual-report-harvester/internal/pipeline"
)

var validate = validator.New()

// industryRef identifies an industry the way the UI sends it.
type industryRef struct {
	Value string `json:"value" validate:"required"`
	Name  string `json:"name" validate:"required"`
}

// industryRequest accepts the industry under either "industry" or
// "industries"; older clients use the plural.
type industryRequest struct {
	Industry   *industryRef `json:"industry"`
	Industries *industryRef `json:"industries"`
}

func (r *industryRequest) resolve() (harvest.Industry, error) {
	ref := r.Industry
	if ref == nil {
		ref = r.Industries
	}
	if ref == nil {
		return harvest.Industry{}, errors.New("industry is required")
	}
	if err := validate.Struct(ref); err != nil {
		return harvest.Industry{}, err //nolint:wrapcheck
	}
	return harvest.Industry{Name: ref.Name, Code: ref.Value}, nil
}

type companyPDFRequest struct {
	CompanyName string `json:"companyname" validate:"required"`
	CompanyID   string `json:"companyId" validate:"required,url"`
}

func (r *companyPDFRequest) Validate() error {
	return validate.Struct(r) //nolint:wrapcheck
}

type emailsRequest struct {
	CompanyID string `json:"companyId" validate:"required,url"`
}

func (r *emailsRequest) Validate() error {
	return validate.Struct(r) //nolint:wrapcheck
}

type batchCompany struct {
	Name       string `json:"CompanyName" validate:"required"`
	ProfileURL string `json:"CompanyUrl"`
}

type batchIndustry struct {
	IndustryName string         `json:"industryName" validate:"required"`
	Companies    []batchCompany `json:"companies" validate:"dive"`
}

type batchRequest []batchIndustry

func (r batchRequest) toBatches() ([]pipeline.IndustryBatch, error) {
	if len(r) == 0 {
		return nil, errors.New("at least one industry is required")
	}
	out := make([]pipeline.IndustryBatch, 0, len(r))
	for i := range r {
		if err := validate.Struct(&r[i]); err != nil {
			return nil, err //nolint:wrapcheck
		}
		companies := make([]harvest.Company, 0, len(r[i].Companies))
		for _, c := range r[i].Companies {
			companies = append(companies, harvest.Company{Name: c.Name, ProfileURL: c.ProfileURL})
		}
		out = append(out, pipeline.IndustryBatch{Name: r[i].IndustryName, Companies: companies})
	}
	return out, nil
}

// industryView is the list shape the UI expects: value duplicates code.
type industryView struct {
	Name  string `json:"name"`
	Code  string `json:"code"`
	Value string `json:"value"`
}

func toIndustryViews(in []harvest.Industry) []industryView {
	out := make([]industryView, 0, len(in))
	for _, ind := range in {
		out = append(out, industryView{Name: ind.Name, Code: ind.Code, Value: ind.Code})
	}
	return out
}
