package student

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nursery/internal/adapters/storage"
	domain "nursery/internal/domain/student"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const studentColumns = `id, name, national_id, birth_date, birth_place, gender, blood_type,
		address, allergies, medical_conditions, tags, notes, photo_path, class_id,
		registration_date, graduation_date, status, is_active, created_at, updated_at`

// GetByID retrieves a student by ID.
// PRE: id is non-empty
// POST: Returns the entity or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
	return scanStudent(row)
}

// Save inserts or updates a student.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, st domain.Student) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO students (id, name, national_id, birth_date, birth_place, gender, blood_type,
		   address, allergies, medical_conditions, tags, notes, photo_path, class_id,
		   registration_date, graduation_date, status, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name=excluded.name, national_id=excluded.national_id, birth_date=excluded.birth_date,
		   birth_place=excluded.birth_place, gender=excluded.gender, blood_type=excluded.blood_type,
		   address=excluded.address, allergies=excluded.allergies,
		   medical_conditions=excluded.medical_conditions, tags=excluded.tags, notes=excluded.notes,
		   photo_path=excluded.photo_path, class_id=excluded.class_id,
		   registration_date=excluded.registration_date, graduation_date=excluded.graduation_date,
		   status=excluded.status, is_active=excluded.is_active, updated_at=excluded.updated_at`,
		st.ID, st.Name, nullableString(st.NationalID), nullableString(st.BirthDate),
		nullableString(st.BirthPlace), nullableString(st.Gender), nullableString(st.BloodType),
		nullableString(st.Address), nullableString(st.Allergies), nullableString(st.MedicalConditions),
		nullableString(st.Tags), nullableString(st.Notes), nullableString(st.PhotoPath),
		nullableString(st.ClassID), nullableString(st.RegistrationDate),
		nullableString(st.GraduationDate), st.Status, boolToInt(st.Active),
		st.CreatedAt.UTC().Format(timeLayout), st.UpdatedAt.UTC().Format(timeLayout))
	return err
}

// SoftDelete marks a student inactive. The row and its child records stay.
// POST: Student reads as inactive; domain.ErrNotFound if the id is unknown
func (s *SQLiteStore) SoftDelete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET is_active = 0, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeLayout), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns students matching the filter, ordered by name.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]domain.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE 1=1`
	args := []any{}

	if !filter.IncludeInactive {
		query += ` AND is_active = 1`
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.ClassID != "" {
		query += ` AND class_id = ?`
		args = append(args, filter.ClassID)
	}
	if filter.Search != "" {
		query += ` AND name LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}
	query += ` ORDER BY name ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanStudents(rows)
}

// SetClass updates the student's convenience class link. An empty classID
// clears it.
func (s *SQLiteStore) SetClass(ctx context.Context, studentID, classID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET class_id = ?, updated_at = ? WHERE id = ?`,
		nullableString(classID), time.Now().UTC().Format(timeLayout), studentID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AddVaccination inserts a vaccination record.
// PRE: entity has been validated
func (s *SQLiteStore) AddVaccination(ctx context.Context, v domain.Vaccination) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO student_vaccinations (id, student_id, vaccine_name, vaccine_date, next_dose_date, notes)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.StudentID, v.VaccineName, v.VaccineDate,
		nullableString(v.NextDoseDate), nullableString(v.Notes))
	return err
}

// GetVaccination fetches one vaccination record by ID.
func (s *SQLiteStore) GetVaccination(ctx context.Context, id string) (domain.Vaccination, error) {
	var v domain.Vaccination
	var nextDose, notes sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, student_id, vaccine_name, vaccine_date, next_dose_date, notes
		 FROM student_vaccinations WHERE id = ?`, id).
		Scan(&v.ID, &v.StudentID, &v.VaccineName, &v.VaccineDate, &nextDose, &notes)
	if err == sql.ErrNoRows {
		return domain.Vaccination{}, domain.ErrVaccinationNotFound
	}
	if err != nil {
		return domain.Vaccination{}, err
	}
	v.NextDoseDate = nextDose.String
	v.Notes = notes.String
	return v, nil
}

// UpdateVaccination rewrites an existing vaccination record.
func (s *SQLiteStore) UpdateVaccination(ctx context.Context, v domain.Vaccination) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE student_vaccinations
		 SET vaccine_name = ?, vaccine_date = ?, next_dose_date = ?, notes = ?
		 WHERE id = ?`,
		v.VaccineName, v.VaccineDate, nullableString(v.NextDoseDate), nullableString(v.Notes), v.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrVaccinationNotFound
	}
	return nil
}

// ListVaccinations returns a student's vaccination records, newest first.
func (s *SQLiteStore) ListVaccinations(ctx context.Context, studentID string) ([]domain.Vaccination, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, vaccine_name, vaccine_date, next_dose_date, notes
		 FROM student_vaccinations WHERE student_id = ?
		 ORDER BY vaccine_date DESC, id DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Vaccination
	for rows.Next() {
		var v domain.Vaccination
		var nextDose, notes sql.NullString
		if err := rows.Scan(&v.ID, &v.StudentID, &v.VaccineName, &v.VaccineDate, &nextDose, &notes); err != nil {
			return nil, err
		}
		v.NextDoseDate = nextDose.String
		v.Notes = notes.String
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVaccination removes a vaccination record by ID. Hard delete.
func (s *SQLiteStore) DeleteVaccination(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM student_vaccinations WHERE id = ?`, id)
	return err
}

// scannedRow holds the raw scanned values from a students row before conversion.
type scannedRow struct {
	nationalID        sql.NullString
	birthDate         sql.NullString
	birthPlace        sql.NullString
	gender            sql.NullString
	bloodType         sql.NullString
	address           sql.NullString
	allergies         sql.NullString
	medicalConditions sql.NullString
	tags              sql.NullString
	notes             sql.NullString
	photoPath         sql.NullString
	classID           sql.NullString
	registrationDate  sql.NullString
	graduationDate    sql.NullString
	active            int
	createdAt         string
	updatedAt         string
}

func scanStudent(row *sql.Row) (domain.Student, error) {
	var st domain.Student
	var s scannedRow
	err := row.Scan(&st.ID, &st.Name, &s.nationalID, &s.birthDate, &s.birthPlace, &s.gender,
		&s.bloodType, &s.address, &s.allergies, &s.medicalConditions, &s.tags, &s.notes,
		&s.photoPath, &s.classID, &s.registrationDate, &s.graduationDate, &st.Status,
		&s.active, &s.createdAt, &s.updatedAt)
	if err == sql.ErrNoRows {
		return domain.Student{}, fmt.Errorf("get student: %w", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Student{}, err
	}
	applyScanned(&st, &s)
	return st, nil
}

func scanStudents(rows *sql.Rows) ([]domain.Student, error) {
	var students []domain.Student
	for rows.Next() {
		var st domain.Student
		var s scannedRow
		err := rows.Scan(&st.ID, &st.Name, &s.nationalID, &s.birthDate, &s.birthPlace, &s.gender,
			&s.bloodType, &s.address, &s.allergies, &s.medicalConditions, &s.tags, &s.notes,
			&s.photoPath, &s.classID, &s.registrationDate, &s.graduationDate, &st.Status,
			&s.active, &s.createdAt, &s.updatedAt)
		if err != nil {
			return nil, err
		}
		applyScanned(&st, &s)
		students = append(students, st)
	}
	return students, rows.Err()
}

func applyScanned(st *domain.Student, s *scannedRow) {
	st.NationalID = s.nationalID.String
	st.BirthDate = s.birthDate.String
	st.BirthPlace = s.birthPlace.String
	st.Gender = s.gender.String
	st.BloodType = s.bloodType.String
	st.Address = s.address.String
	st.Allergies = s.allergies.String
	st.MedicalConditions = s.medicalConditions.String
	st.Tags = s.tags.String
	st.Notes = s.notes.String
	st.PhotoPath = s.photoPath.String
	st.ClassID = s.classID.String
	st.RegistrationDate = s.registrationDate.String
	st.GraduationDate = s.graduationDate.String
	st.Active = s.active != 0
	st.CreatedAt = parseTime(s.createdAt)
	st.UpdatedAt = parseTime(s.updatedAt)
}

// parseTime is lenient: rows written by older releases may carry the
// SQLite datetime('now') format instead of RFC3339.
func parseTime(raw string) time.Time {
	if t, err := time.Parse(timeLayout, raw); err == nil {
		return t
	}
	t, _ := time.Parse("2006-01-02 15:04:05", raw)
	return t
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
