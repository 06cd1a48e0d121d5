package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	"github.com/sigmarp/medical-api/pkg/docstore"
	"github.com/sigmarp/medical-api/pkg/logger"
	"github.com/sigmarp/medical-api/pkg/metrics"
)

const (
	MedicalRecruitmentsCollection = "medical_recruitments"
	PoliceRecruitmentsCollection  = "police_recruitments"
)

// RecruitmentCollection maps a profession to the collection holding its
// applications.
func RecruitmentCollection(p model.Profession) (string, error) {
	switch p {
	case model.ProfessionEMS:
		return MedicalRecruitmentsCollection, nil
	case model.ProfessionPolice:
		return PoliceRecruitmentsCollection, nil
	}
	return "", fmt.Errorf("%w: %q", repository.ErrUnsupportedProfession, p)
}

type recruitmentRepository struct {
	store docstore.Store
	log   *logger.Logger
	now   func() time.Time
}

func NewRecruitmentRepository(store docstore.Store, log *logger.Logger) repository.RecruitmentRepository {
	return &recruitmentRepository{store: store, log: log.With("recruitment_repository"), now: time.Now}
}

func (r *recruitmentRepository) Create(ctx context.Context, rec *model.Recruitment) error {
	coll, err := RecruitmentCollection(rec.Profession)
	if err != nil {
		return err
	}

	doc, err := encodeRecruitment(rec)
	if err != nil {
		return fmt.Errorf("encode recruitment: %w", err)
	}
	if err := r.store.Put(ctx, coll, rec.ID, doc); err != nil {
		metrics.RecordStoreError(coll, "create")
		return fmt.Errorf("store recruitment: %w", err)
	}

	r.log.Info("recruitment created", "recruitment_id", rec.ID, "profession", rec.Profession)
	return nil
}

func (r *recruitmentRepository) Get(ctx context.Context, p model.Profession, id string) (*model.Recruitment, error) {
	coll, err := RecruitmentCollection(p)
	if err != nil {
		return nil, err
	}

	doc, err := r.store.Get(ctx, coll, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordStoreError(coll, "get")
		return nil, fmt.Errorf("get recruitment: %w", err)
	}
	return r.decode(id, doc)
}

func (r *recruitmentRepository) List(ctx context.Context, p model.Profession, attended *bool) ([]*model.Recruitment, error) {
	coll, err := RecruitmentCollection(p)
	if err != nil {
		return nil, err
	}

	q := docstore.Query{}.OrderByDesc("created_at")
	if attended != nil {
		q = q.Where("attended", *attended)
	}

	snaps, err := r.store.Find(ctx, coll, q)
	if err != nil {
		metrics.RecordStoreError(coll, "find")
		return nil, fmt.Errorf("list recruitments: %w", err)
	}

	out := make([]*model.Recruitment, 0, len(snaps))
	for _, snap := range snaps {
		rec, err := r.decode(snap.ID, snap.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	r.log.Debug("recruitments listed", "profession", p, "count", len(out))
	return out, nil
}

func (r *recruitmentRepository) MarkAttended(ctx context.Context, p model.Profession, id, attendedBy string, at time.Time) (*model.Recruitment, error) {
	coll, err := RecruitmentCollection(p)
	if err != nil {
		return nil, err
	}

	err = r.store.Merge(ctx, coll, id, docstore.Document{
		"attended":    true,
		"attended_by": attendedBy,
		"attended_at": timeValue(&at),
	})
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("recruitment %s: %w", id, repository.ErrNotFound)
	}
	if err != nil {
		metrics.RecordStoreError(coll, "merge")
		return nil, fmt.Errorf("mark recruitment attended: %w", err)
	}

	rec, err := r.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("recruitment %s: %w", id, repository.ErrNotFound)
	}
	r.log.Info("recruitment attended", "recruitment_id", id, "attended_by", attendedBy)
	return rec, nil
}

func encodeRecruitment(rec *model.Recruitment) (docstore.Document, error) {
	doc, err := encodeRecord(rec, map[string]*time.Time{
		"created_at":  &rec.CreatedAt,
		"attended_at": rec.AttendedAt,
	})
	if err != nil {
		return nil, err
	}
	delete(doc, "id")
	doc["attended_by"] = optStr(rec.AttendedBy)
	return doc, nil
}

func (r *recruitmentRepository) decode(id string, doc docstore.Document) (*model.Recruitment, error) {
	var rec model.Recruitment
	m, err := decodeRecord(map[string]interface{}(doc), &rec, "created_at", "attended_at", "id")
	if err != nil {
		return nil, fmt.Errorf("decode recruitment %s: %w", id, err)
	}
	rec.ID = id
	rec.CreatedAt = timeOr(m, "created_at", r.now())
	rec.AttendedAt = optTime(m, "attended_at")
	return &rec, nil
}
