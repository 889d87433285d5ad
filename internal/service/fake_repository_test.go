package service

import (
	"context"
	"sort"
	"time"

	"dairy-matrix/internal/model"
	"dairy-matrix/internal/repository"
)

type dailyKey struct {
	est     uint
	date    time.Time
	concept string
}

type weeklyKey struct {
	est        uint
	week, year int
}

type historicKey struct {
	est  string
	week int
}

// fakeRepository is an in-memory DairyRepository with the same upsert keys
// as the database schema
type fakeRepository struct {
	companies      []model.Company
	establishments []model.Establishment
	daily          map[dailyKey]model.DailyRecord
	weekly         map[weeklyKey]model.WeeklyAggregate
	historic       map[historicKey]model.HistoricalRecord

	dailyErr    error
	historicErr error
	writes      int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		daily:    make(map[dailyKey]model.DailyRecord),
		weekly:   make(map[weeklyKey]model.WeeklyAggregate),
		historic: make(map[historicKey]model.HistoricalRecord),
	}
}

var _ repository.DairyRepository = (*fakeRepository)(nil)

func (f *fakeRepository) Migrate(ctx context.Context) error { return nil }

func (f *fakeRepository) ResolveOrCreateCompany(ctx context.Context, code, name string) (*model.Company, bool, error) {
	for i := range f.companies {
		if f.companies[i].Code == code {
			c := f.companies[i]
			return &c, false, nil
		}
	}
	f.writes++
	c := model.Company{ID: uint(len(f.companies) + 1), Code: code, Name: name}
	f.companies = append(f.companies, c)
	return &c, true, nil
}

func (f *fakeRepository) ResolveOrCreateEstablishment(ctx context.Context, companyID uint, name string) (*model.Establishment, bool, error) {
	for i := range f.establishments {
		if f.establishments[i].CompanyID == companyID && f.establishments[i].Name == name {
			e := f.establishments[i]
			return &e, false, nil
		}
	}
	f.writes++
	e := model.Establishment{ID: uint(len(f.establishments) + 1), CompanyID: companyID, Name: name}
	f.establishments = append(f.establishments, e)
	return &e, true, nil
}

func (f *fakeRepository) UpdatePastureArea(ctx context.Context, establishmentID uint, area float64) error {
	for i := range f.establishments {
		if f.establishments[i].ID == establishmentID {
			f.writes++
			f.establishments[i].PastureArea = &area
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeRepository) UpsertDailyRecords(ctx context.Context, records []model.DailyRecord, batchSize int) (int, error) {
	if f.dailyErr != nil {
		return 0, f.dailyErr
	}
	for _, r := range records {
		f.writes++
		f.daily[dailyKey{r.EstablishmentID, r.Date, r.Concept}] = r
	}
	return len(records), nil
}

func (f *fakeRepository) UpsertWeeklyAggregate(ctx context.Context, agg *model.WeeklyAggregate) error {
	f.writes++
	k := weeklyKey{agg.EstablishmentID, agg.Week, agg.Year}
	stored, ok := f.weekly[k]
	if !ok {
		f.weekly[k] = *agg
		return nil
	}
	for field, v := range agg.Values() {
		stored.Set(field, v)
	}
	stored.StartDate, stored.EndDate = agg.StartDate, agg.EndDate
	f.weekly[k] = stored
	return nil
}

func (f *fakeRepository) UpsertHistoricalRecords(ctx context.Context, records []model.HistoricalRecord, batchSize int) (int, error) {
	if f.historicErr != nil {
		return 0, f.historicErr
	}
	for _, r := range records {
		f.writes++
		f.historic[historicKey{r.Establishment, r.Week}] = r
	}
	return len(records), nil
}

func (f *fakeRepository) LatestWeek(ctx context.Context) (int, int, error) {
	week, year := 0, 0
	for k := range f.weekly {
		if k.year > year || (k.year == year && k.week > week) {
			week, year = k.week, k.year
		}
	}
	if year == 0 {
		return 0, 0, repository.ErrNotFound
	}
	return week, year, nil
}

func (f *fakeRepository) establishment(id uint) model.Establishment {
	for _, e := range f.establishments {
		if e.ID == id {
			for _, c := range f.companies {
				if c.ID == e.CompanyID {
					e.Company = c
				}
			}
			return e
		}
	}
	return model.Establishment{}
}

func (f *fakeRepository) WeeklyAggregates(ctx context.Context, filter repository.WeeklyFilter) ([]model.WeeklyAggregate, error) {
	var out []model.WeeklyAggregate
	for k, a := range f.weekly {
		if filter.Week > 0 && k.week != filter.Week {
			continue
		}
		if filter.Year > 0 && k.year != filter.Year {
			continue
		}
		if filter.EstablishmentID > 0 && k.est != filter.EstablishmentID {
			continue
		}
		a.Establishment = f.establishment(k.est)
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EstablishmentID < out[j].EstablishmentID })
	return out, nil
}

func (f *fakeRepository) DailyRecords(ctx context.Context, establishmentID uint, from, to time.Time) ([]model.DailyRecord, error) {
	var out []model.DailyRecord
	for k, r := range f.daily {
		if k.est == establishmentID && !k.date.Before(from) && !k.date.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeRepository) HistoricalRecords(ctx context.Context, establishment string) ([]model.HistoricalRecord, error) {
	var out []model.HistoricalRecord
	for k, r := range f.historic {
		if k.est == establishment {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

func (f *fakeRepository) HistoricWeeks(ctx context.Context) ([]repository.HistoricWeek, error) {
	byWeek := make(map[int]*repository.HistoricWeek)
	ests := make(map[int]map[string]bool)
	for k, r := range f.historic {
		w, ok := byWeek[k.week]
		if !ok {
			w = &repository.HistoricWeek{Week: k.week, Date: r.Date}
			byWeek[k.week] = w
			ests[k.week] = make(map[string]bool)
		}
		w.Records++
		if r.Date.Before(w.Date) {
			w.Date = r.Date
		}
		ests[k.week][k.est] = true
	}
	var out []repository.HistoricWeek
	for week, w := range byWeek {
		w.Establishments = len(ests[week])
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Week < out[j].Week })
	return out, nil
}

func repositoryFilter(week, year int) repository.WeeklyFilter {
	return repository.WeeklyFilter{Week: week, Year: year}
}
