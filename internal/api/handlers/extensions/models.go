package extensions

import (
	"net/http"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/internal/service/extensions/models"
)

// ToStatisticsRequest собирает период из query параметров startDate/endDate (YYYY-MM-DD)
func ToStatisticsRequest(r *http.Request) (*models.StatisticsRequest, error) {
	q := r.URL.Query()
	req := &models.StatisticsRequest{}

	var err error
	if req.StartDate, err = parseDate(q.Get("startDate")); err != nil {
		return nil, err
	}
	if req.EndDate, err = parseDate(q.Get("endDate")); err != nil {
		return nil, err
	}

	return req, nil
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	date, err := time.Parse(domain.DateFormat, s)
	if err != nil {
		return nil, err
	}
	return &date, nil
}
