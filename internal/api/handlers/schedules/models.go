package schedules

import (
	"net/http"
	"strconv"
	"time"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/internal/service/schedules/models"
)

// ToServiceRequest собирает фильтр из query параметров.
// date задает один день, startDate/endDate задают период.
func ToServiceRequest(r *http.Request) (*models.ListSchedulesRequest, error) {
	q := r.URL.Query()
	req := &models.ListSchedulesRequest{Statuses: handlers.QueryList(r, "status")}

	var err error
	if req.ConsultantID, err = handlers.QueryID(r, "consultantId"); err != nil {
		return nil, err
	}
	if req.ClientID, err = handlers.QueryID(r, "clientId"); err != nil {
		return nil, err
	}
	if req.MappingID, err = handlers.QueryID(r, "mappingId"); err != nil {
		return nil, err
	}

	if dateStr := q.Get("date"); dateStr != "" {
		date, err := time.Parse(domain.DateFormat, dateStr)
		if err != nil {
			return nil, err
		}
		req.StartDate = &date
		req.EndDate = &date
	} else {
		if req.StartDate, err = parseDate(q.Get("startDate")); err != nil {
			return nil, err
		}
		if req.EndDate, err = parseDate(q.Get("endDate")); err != nil {
			return nil, err
		}
	}

	if s := q.Get("includeCancelled"); s != "" {
		if req.IncludeCancelled, err = strconv.ParseBool(s); err != nil {
			return nil, err
		}
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
