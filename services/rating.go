package services

import (
	"math"

	"faculty-ranker-api/models"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

// Ratings is one submission across the three rating axes.
type Ratings struct {
	Teaching   float64 `json:"teaching"`
	Correction float64 `json:"correction"`
	Attendance float64 `json:"attendance"`
}

func (r Ratings) values() [3]float64 {
	return [3]float64{r.Teaching, r.Correction, r.Attendance}
}

// Validate rejects NaN, infinities and values outside [0,5].
func (r Ratings) Validate() error {
	for _, v := range r.values() {
		if math.IsNaN(v) || v < MinRating || v > MaxRating {
			return ErrInvalidRating
		}
	}
	return nil
}

// applyRating folds one sample into a running mean.
func applyRating(d *models.RatingDimension, value float64) {
	n := float64(d.Count)
	d.Average = (d.Average*n + value) / (n + 1)
	d.Count++
}

// applyRatings updates every axis of f independently.
func applyRatings(f *models.Faculty, r Ratings) {
	values := r.values()
	for i, d := range f.Dimensions() {
		applyRating(d, values[i])
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// rounded returns the display averages of f.
func rounded(f *models.Faculty) Ratings {
	return Ratings{
		Teaching:   round2(f.Teaching.Average),
		Correction: round2(f.Correction.Average),
		Attendance: round2(f.Attendance.Average),
	}
}
