package client

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/lox/meteopl/internal/models"
	"github.com/lox/meteopl/internal/records"
)

// MonthRange is an inclusive month span.
type MonthRange struct {
	StartMonth int
	StartYear  int
	EndMonth   int
	EndYear    int
}

func (c *Client) Cities(ctx context.Context) ([]models.City, error) {
	var out []models.City
	if err := c.getJSON(ctx, PathCities, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Columns(ctx context.Context) ([]string, error) {
	var out models.Columns
	if err := c.getJSON(ctx, PathColumns, nil, &out); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

func (c *Client) Daily(ctx context.Context, cityID int64, start, end time.Time) (records.Batch, error) {
	return c.getBatch(ctx, PathDaily, url.Values{
		"cityId":    {id(cityID)},
		"startDate": {formatDate(start)},
		"endDate":   {formatDate(end)},
	})
}

func (c *Client) Monthly(ctx context.Context, cityID int64, r MonthRange) (records.Batch, error) {
	return c.getBatch(ctx, PathMonthly, url.Values{
		"cityId":     {id(cityID)},
		"startMonth": {strconv.Itoa(r.StartMonth)},
		"startYear":  {strconv.Itoa(r.StartYear)},
		"endMonth":   {strconv.Itoa(r.EndMonth)},
		"endYear":    {strconv.Itoa(r.EndYear)},
	})
}

func (c *Client) Yearly(ctx context.Context, cityID int64, startYear, endYear int) (records.Batch, error) {
	return c.getBatch(ctx, PathYearly, url.Values{
		"cityId":    {id(cityID)},
		"startYear": {strconv.Itoa(startYear)},
		"endYear":   {strconv.Itoa(endYear)},
	})
}

func (c *Client) Compare(ctx context.Context, cityID1, cityID2 int64, date time.Time) (models.ComparisonResult, error) {
	var out models.ComparisonResult
	err := c.getJSON(ctx, PathCompare, url.Values{
		"cityId1": {id(cityID1)},
		"cityId2": {id(cityID2)},
		"date":    {formatDate(date)},
	}, &out)
	return out, err
}

func (c *Client) Correlation(ctx context.Context, cityID int64, start, end time.Time, column1, column2 string) (models.CorrelationResult, error) {
	var out models.CorrelationResult
	err := c.getJSON(ctx, PathCorrelation, url.Values{
		"cityId":    {id(cityID)},
		"startDate": {formatDate(start)},
		"endDate":   {formatDate(end)},
		"column1":   {column1},
		"column2":   {column2},
	}, &out)
	return out, err
}

func (c *Client) TemperaturePrediction(ctx context.Context, cityID int64) ([]models.ClimatePrediction, error) {
	var out []models.ClimatePrediction
	if err := c.getJSON(ctx, PathPrediction, url.Values{"cityId": {id(cityID)}}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context, cityID int64, start, end time.Time) (models.WeatherStats, error) {
	var out models.WeatherStats
	err := c.getJSON(ctx, PathStats, url.Values{
		"cityId":    {id(cityID)},
		"startDate": {formatDate(start)},
		"endDate":   {formatDate(end)},
	}, &out)
	return out, err
}

func (c *Client) PolandWeather(ctx context.Context, date time.Time) (records.Batch, error) {
	return c.getBatch(ctx, PathPolandWeather, PolandQuery(date))
}

// PolandQuery is the query of the Poland-wide snapshot for one day.
func PolandQuery(date time.Time) url.Values {
	return url.Values{"date": {formatDate(date)}}
}
