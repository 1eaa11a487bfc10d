package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/paiban/paike/internal/database"
	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/scheduler"
)

// Run 一次排课运行记录
type Run struct {
	ID          string    `db:"id" json:"id"`
	Env         string    `db:"env" json:"env"`
	Status      string    `db:"status" json:"status"`
	Objective   int64     `db:"objective" json:"objective"`
	Rows        int       `db:"row_count" json:"rows"`
	InvalidRows int       `db:"invalid_rows" json:"invalid_rows"`
	Conflicts   int       `db:"conflicts" json:"conflicts"`
	DurationMS  int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Assignment 排课结果行；学段与课时类型按基础类型存储
type Assignment struct {
	ID            string `db:"id"`
	RunID         string `db:"run_id"`
	Day           int    `db:"day"`
	Shift         int    `db:"shift"`
	Subject       string `db:"subject"`
	Level         int    `db:"level"`
	Student       int    `db:"student"`
	Teacher       int    `db:"teacher"`
	StudentID     string `db:"student_id"`
	TeacherID     string `db:"teacher_id"`
	IsPrimarySlot bool   `db:"is_primary_slot"`
	ActualSubject string `db:"actual_subject"`
	SlotType      string `db:"slot_type"`
	IsPrefer      bool   `db:"is_prefer"`
}

func newAssignment(runID string, row model.ResultRow) Assignment {
	return Assignment{
		ID:            uuid.NewString(),
		RunID:         runID,
		Day:           row.Day,
		Shift:         row.Shift,
		Subject:       row.Subject,
		Level:         int(row.Level),
		Student:       row.Student,
		Teacher:       row.Teacher,
		StudentID:     row.StudentID,
		TeacherID:     row.TeacherID,
		IsPrimarySlot: row.IsPrimarySlot,
		ActualSubject: row.ActualSubject,
		SlotType:      string(row.SlotType),
		IsPrefer:      row.IsPrefer,
	}
}

// Row 转换回结果行
func (a Assignment) Row() model.ResultRow {
	return model.ResultRow{
		Day:           a.Day,
		Shift:         a.Shift,
		Subject:       a.Subject,
		Level:         model.Level(a.Level),
		Student:       a.Student,
		Teacher:       a.Teacher,
		IsPrimarySlot: a.IsPrimarySlot,
		ActualSubject: a.ActualSubject,
		SlotType:      model.SlotType(a.SlotType),
		IsPrefer:      a.IsPrefer,
		StudentID:     a.StudentID,
		TeacherID:     a.TeacherID,
	}
}

// RunFromResult 由排课结果构建运行记录
func RunFromResult(res *scheduler.Result, env string) *Run {
	run := &Run{
		ID:         res.RunID,
		Env:        env,
		Status:     string(res.Status),
		Rows:       len(res.Rows),
		Conflicts:  len(res.Conflicts),
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Phase2 != nil {
		run.Objective = res.Phase2.Objective
	}
	if res.Postprocess != nil {
		run.InvalidRows = res.Postprocess.Invalid
	}
	return run
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS schedule_runs (
		id TEXT PRIMARY KEY,
		env TEXT NOT NULL,
		status TEXT NOT NULL,
		objective BIGINT NOT NULL DEFAULT 0,
		row_count INTEGER NOT NULL DEFAULT 0,
		invalid_rows INTEGER NOT NULL DEFAULT 0,
		conflicts INTEGER NOT NULL DEFAULT 0,
		duration_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS schedule_assignments (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES schedule_runs(id) ON DELETE CASCADE,
		day INTEGER NOT NULL,
		shift INTEGER NOT NULL,
		subject TEXT NOT NULL,
		level INTEGER NOT NULL,
		student INTEGER NOT NULL,
		teacher INTEGER NOT NULL,
		student_id TEXT NOT NULL DEFAULT '',
		teacher_id TEXT NOT NULL DEFAULT '',
		is_primary_slot BOOLEAN NOT NULL DEFAULT FALSE,
		actual_subject TEXT NOT NULL DEFAULT '',
		slot_type TEXT NOT NULL DEFAULT '',
		is_prefer BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedule_assignments_run ON schedule_assignments (run_id)`,
}

const insertRun = `
	INSERT INTO schedule_runs (
		id, env, status, objective, row_count, invalid_rows, conflicts, duration_ms, created_at
	) VALUES (
		:id, :env, :status, :objective, :row_count, :invalid_rows, :conflicts, :duration_ms, :created_at
	)`

const insertAssignment = `
	INSERT INTO schedule_assignments (
		id, run_id, day, shift, subject, level, student, teacher, student_id, teacher_id,
		is_primary_slot, actual_subject, slot_type, is_prefer
	) VALUES (
		:id, :run_id, :day, :shift, :subject, :level, :student, :teacher, :student_id, :teacher_id,
		:is_primary_slot, :actual_subject, :slot_type, :is_prefer
	)`

const runColumns = `id, env, status, objective, row_count, invalid_rows, conflicts, duration_ms, created_at`

// RunRepository 排课结果仓储
type RunRepository struct {
	db *database.DB
}

// NewRunRepository 创建排课结果仓储
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate 创建表结构（幂等）
func (r *RunRepository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, errors.CodeDatabaseError, "创建表结构失败")
		}
	}
	return nil
}

// Save 在一个事务中保存运行记录及全部结果行
func (r *RunRepository) Save(ctx context.Context, run *Run, rows []model.ResultRow) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := sqlx.NamedExecContext(ctx, tx, insertRun, run); err != nil {
			return fmt.Errorf("保存运行记录失败: %w", err)
		}
		for i := range rows {
			if _, err := sqlx.NamedExecContext(ctx, tx, insertAssignment, newAssignment(run.ID, rows[i])); err != nil {
				return fmt.Errorf("保存第 %d 行结果失败: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "保存排课结果失败").WithField("run_id", run.ID)
	}
	return nil
}

// GetRun 根据ID获取运行记录
func (r *RunRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	query := r.db.Rebind(`SELECT ` + runColumns + ` FROM schedule_runs WHERE id = ?`)

	var run Run
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("排课记录", id)
		}
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询运行记录失败")
	}
	return &run, nil
}

// ListRuns 按创建时间倒序列出运行记录
func (r *RunRepository) ListRuns(ctx context.Context, filter ListFilter) ([]Run, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Env != "" {
		where = append(where, "env = ?")
		args = append(args, filter.Env)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := `SELECT ` + runColumns + ` FROM schedule_runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	var runs []Run
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询运行记录失败")
	}
	return runs, nil
}

// ListAssignments 按规范顺序返回某次运行的结果行
func (r *RunRepository) ListAssignments(ctx context.Context, runID string) ([]model.ResultRow, error) {
	query := r.db.Rebind(`
		SELECT id, run_id, day, shift, subject, level, student, teacher, student_id, teacher_id,
			is_primary_slot, actual_subject, slot_type, is_prefer
		FROM schedule_assignments
		WHERE run_id = ?
		ORDER BY day, shift, student, teacher, subject`)

	var assignments []Assignment
	if err := r.db.SelectContext(ctx, &assignments, query, runID); err != nil {
		return nil, errors.Wrap(err, errors.CodeDatabaseError, "查询结果行失败")
	}
	rows := make([]model.ResultRow, len(assignments))
	for i, a := range assignments {
		rows[i] = a.Row()
	}
	return rows, nil
}
