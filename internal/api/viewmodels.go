package api

import (
	"time"

	"github.com/lox/meteopl/internal/compare"
	"github.com/lox/meteopl/internal/models"
	"github.com/lox/meteopl/internal/records"
	"github.com/lox/meteopl/internal/series"
)

// Page names.
const (
	PageDaily       = "daily"
	PageMonthly     = "monthly"
	PageYearly      = "yearly"
	PageCompare     = "compare"
	PageCorrelation = "correlation"
	PagePrediction  = "prediction"
	PageStats       = "stats"
	PagePoland      = "poland"
)

// PageResult is everything one page shows after a submission. A newer
// submission replaces it wholesale.
type PageResult struct {
	Page        string    `json:"page"`
	Generation  uint64    `json:"generation"`
	GeneratedAt time.Time `json:"generatedAt"`
	Granularity string    `json:"granularity,omitempty"`

	Columns []string         `json:"columns,omitempty"`
	Rows    [][]string       `json:"rows,omitempty"`
	Charts  []series.Dataset `json:"charts,omitempty"`

	Panels      []compare.Panel            `json:"panels,omitempty"`
	Correlation *models.CorrelationResult  `json:"correlation,omitempty"`
	Predictions []models.ClimatePrediction `json:"predictions,omitempty"`
	Stats       models.WeatherStats        `json:"stats,omitempty"`
	Sentences   []string                   `json:"sentences,omitempty"`
	Narrative   string                     `json:"narrative,omitempty"`

	// batch is the classified data behind Rows, kept for CSV export.
	batch records.Batch
}

// Chart returns the dataset of the given kind, or the first chart when
// kind is empty.
func (p *PageResult) Chart(kind series.Kind) (series.Dataset, bool) {
	if len(p.Charts) == 0 {
		return series.Dataset{}, false
	}
	if kind == "" {
		return p.Charts[0], true
	}
	for _, ds := range p.Charts {
		if ds.Kind == kind {
			return ds, true
		}
	}
	return series.Dataset{}, false
}

type dailyQuery struct {
	CityID    int64     `form:"cityId" binding:"required,min=1"`
	StartDate time.Time `form:"startDate" time_format:"2006-01-02" binding:"required"`
	EndDate   time.Time `form:"endDate" time_format:"2006-01-02" binding:"required,gtefield=StartDate"`
}

type monthlyQuery struct {
	CityID     int64 `form:"cityId" binding:"required,min=1"`
	StartMonth int   `form:"startMonth" binding:"required,min=1,max=12"`
	StartYear  int   `form:"startYear" binding:"required,min=1900"`
	EndMonth   int   `form:"endMonth" binding:"required,min=1,max=12"`
	EndYear    int   `form:"endYear" binding:"required,gtefield=StartYear"`
}

type yearlyQuery struct {
	CityID    int64 `form:"cityId" binding:"required,min=1"`
	StartYear int   `form:"startYear" binding:"required,min=1900"`
	EndYear   int   `form:"endYear" binding:"required,gtefield=StartYear"`
}

type compareQuery struct {
	CityID1 int64     `form:"cityId1" binding:"required,min=1"`
	CityID2 int64     `form:"cityId2" binding:"required,min=1,nefield=CityID1"`
	Date    time.Time `form:"date" time_format:"2006-01-02" binding:"required"`
}

type correlationQuery struct {
	dailyQuery
	Column1 string `form:"column1" binding:"required"`
	Column2 string `form:"column2" binding:"required"`
}

type cityQuery struct {
	CityID int64 `form:"cityId" binding:"required,min=1"`
}

type polandQuery struct {
	Date time.Time `form:"date" time_format:"2006-01-02" binding:"required"`
}

type exportQuery struct {
	Format string      `form:"format" binding:"omitempty,oneof=csv png"`
	Chart  series.Kind `form:"chart"`
	Upload bool        `form:"upload"`
}

type uiStateBody struct {
	SidebarCollapsed *bool `json:"sidebarCollapsed" binding:"required"`
}
