package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/sigmarp/medical-api/internal/model"
	"github.com/sigmarp/medical-api/internal/repository"
	"github.com/sigmarp/medical-api/pkg/docstore"
)

const DoctorsCollection = "doctors"

type doctorRepository struct {
	store docstore.Store
}

func NewDoctorRepository(store docstore.Store) repository.DoctorRepository {
	return &doctorRepository{store: store}
}

func (r *doctorRepository) GetByDNI(ctx context.Context, dni string) (*model.Doctor, error) {
	doc, err := r.store.Get(ctx, DoctorsCollection, dni)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get doctor %s: %w", dni, err)
	}

	var d model.Doctor
	if _, err := decodeRecord(map[string]interface{}(doc), &d); err != nil {
		return nil, fmt.Errorf("decode doctor %s: %w", dni, err)
	}
	if d.DNI == "" {
		d.DNI = dni
	}
	return &d, nil
}

func (r *doctorRepository) Upsert(ctx context.Context, d *model.Doctor) error {
	doc, err := encodeRecord(d, nil)
	if err != nil {
		return fmt.Errorf("encode doctor: %w", err)
	}
	if err := r.store.Put(ctx, DoctorsCollection, d.DNI, doc); err != nil {
		return fmt.Errorf("store doctor %s: %w", d.DNI, err)
	}
	return nil
}
