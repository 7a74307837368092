package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SelectBuilder SQL查询构建器，占位符统一写作 ?，执行时按方言改写
type SelectBuilder struct {
	table      string
	selectCols []string
	joins      []string
	whereConds []string
	orderBy    []string
	limitVal   int
	offsetVal  int
	suffix     string
	joinArgs   []interface{}
	whereArgs  []interface{}
}

// NewSelectBuilder 创建新的SELECT查询构建器
func NewSelectBuilder(table string, cols ...string) *SelectBuilder {
	selectCols := cols
	if len(cols) == 0 {
		selectCols = []string{"*"}
	}

	return &SelectBuilder{
		table:      table,
		selectCols: selectCols,
	}
}

// Join 添加JOIN，参数排在WHERE参数之前
func (b *SelectBuilder) Join(joinType, table, onCondition string, args ...interface{}) *SelectBuilder {
	b.joins = append(b.joins, fmt.Sprintf("%s %s ON %s", joinType, table, onCondition))
	b.joinArgs = append(b.joinArgs, args...)
	return b
}

// Where 添加WHERE条件，多个条件以AND连接
func (b *SelectBuilder) Where(condition string, args ...interface{}) *SelectBuilder {
	b.whereConds = append(b.whereConds, condition)
	b.whereArgs = append(b.whereArgs, args...)
	return b
}

// OrderBy 添加ORDER BY
func (b *SelectBuilder) OrderBy(cols ...string) *SelectBuilder {
	b.orderBy = append(b.orderBy, cols...)
	return b
}

// Limit 设置LIMIT
func (b *SelectBuilder) Limit(n int) *SelectBuilder {
	b.limitVal = n
	return b
}

// Offset 设置OFFSET
func (b *SelectBuilder) Offset(n int) *SelectBuilder {
	b.offsetVal = n
	return b
}

// Suffix 追加到语句末尾，例如 FOR UPDATE
func (b *SelectBuilder) Suffix(s string) *SelectBuilder {
	b.suffix = s
	return b
}

// Args 获取参数
func (b *SelectBuilder) Args() []interface{} {
	args := make([]interface{}, 0, len(b.joinArgs)+len(b.whereArgs))
	args = append(args, b.joinArgs...)
	return append(args, b.whereArgs...)
}

// Build 构建SQL语句
func (b *SelectBuilder) Build() string {
	var query strings.Builder

	query.WriteString("SELECT ")
	query.WriteString(strings.Join(b.selectCols, ", "))
	query.WriteString(" FROM " + b.table)
	b.writeFilters(&query)

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		query.WriteString(strings.Join(b.orderBy, ", "))
	}

	if b.limitVal > 0 {
		query.WriteString(fmt.Sprintf(" LIMIT %d", b.limitVal))
	}
	if b.offsetVal > 0 {
		query.WriteString(fmt.Sprintf(" OFFSET %d", b.offsetVal))
	}

	if b.suffix != "" {
		query.WriteString(" " + b.suffix)
	}

	return query.String()
}

// BuildCount 构建与当前过滤条件一致的COUNT语句，忽略排序与分页
func (b *SelectBuilder) BuildCount() string {
	var query strings.Builder

	query.WriteString("SELECT COUNT(*) FROM " + b.table)
	b.writeFilters(&query)

	return query.String()
}

func (b *SelectBuilder) writeFilters(query *strings.Builder) {
	for _, join := range b.joins {
		query.WriteString(" " + join)
	}

	if len(b.whereConds) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(b.whereConds, " AND "))
	}
}

// Query 执行查询
func (b *SelectBuilder) Query(ctx context.Context, q Querier, d Dialect) (*sql.Rows, error) {
	return q.QueryContext(ctx, d.Rebind(b.Build()), b.Args()...)
}

// QueryRow 执行单行查询
func (b *SelectBuilder) QueryRow(ctx context.Context, q Querier, d Dialect) *sql.Row {
	return q.QueryRowContext(ctx, d.Rebind(b.Build()), b.Args()...)
}

// Count 执行COUNT查询
func (b *SelectBuilder) Count(ctx context.Context, q Querier, d Dialect) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, d.Rebind(b.BuildCount()), b.Args()...).Scan(&n)
	return n, err
}

// InsertBuilder INSERT查询构建器
type InsertBuilder struct {
	table string
	cols  []string
	args  []interface{}
}

// NewInsertBuilder 创建INSERT构建器
func NewInsertBuilder(table string) *InsertBuilder {
	return &InsertBuilder{table: table}
}

// Set 添加列和值
func (i *InsertBuilder) Set(col string, val interface{}) *InsertBuilder {
	i.cols = append(i.cols, col)
	i.args = append(i.args, val)
	return i
}

// Build 构建INSERT语句
func (i *InsertBuilder) Build() string {
	placeholders := make([]string, len(i.cols))
	for j := range placeholders {
		placeholders[j] = "?"
	}

	return "INSERT INTO " + i.table +
		" (" + strings.Join(i.cols, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"
}

// Args 返回参数列表
func (i *InsertBuilder) Args() []interface{} {
	return i.args
}

// Exec 执行INSERT
func (i *InsertBuilder) Exec(ctx context.Context, q Querier, d Dialect) (sql.Result, error) {
	return q.ExecContext(ctx, d.Rebind(i.Build()), i.args...)
}

// UpdateBuilder UPDATE查询构建器，SET按调用顺序输出
type UpdateBuilder struct {
	table      string
	sets       []string
	setArgs    []interface{}
	conditions []string
	condArgs   []interface{}
}

// NewUpdateBuilder 创建UPDATE构建器
func NewUpdateBuilder(table string) *UpdateBuilder {
	return &UpdateBuilder{table: table}
}

// Set 设置更新列
func (u *UpdateBuilder) Set(col string, val interface{}) *UpdateBuilder {
	u.sets = append(u.sets, col+" = ?")
	u.setArgs = append(u.setArgs, val)
	return u
}

// Where 设置WHERE条件
func (u *UpdateBuilder) Where(condition string, args ...interface{}) *UpdateBuilder {
	u.conditions = append(u.conditions, condition)
	u.condArgs = append(u.condArgs, args...)
	return u
}

// Build 构建UPDATE语句
func (u *UpdateBuilder) Build() string {
	var query strings.Builder

	query.WriteString("UPDATE " + u.table)
	query.WriteString(" SET " + strings.Join(u.sets, ", "))

	if len(u.conditions) > 0 {
		query.WriteString(" WHERE " + strings.Join(u.conditions, " AND "))
	}

	return query.String()
}

// Args 返回参数列表
func (u *UpdateBuilder) Args() []interface{} {
	args := make([]interface{}, 0, len(u.setArgs)+len(u.condArgs))
	args = append(args, u.setArgs...)
	return append(args, u.condArgs...)
}

// Exec 执行UPDATE
func (u *UpdateBuilder) Exec(ctx context.Context, q Querier, d Dialect) (sql.Result, error) {
	return q.ExecContext(ctx, d.Rebind(u.Build()), u.Args()...)
}

// DeleteBuilder DELETE查询构建器
type DeleteBuilder struct {
	table      string
	conditions []string
	args       []interface{}
}

// NewDeleteBuilder 创建DELETE构建器
func NewDeleteBuilder(table string) *DeleteBuilder {
	return &DeleteBuilder{table: table}
}

// Where 设置WHERE条件
func (d *DeleteBuilder) Where(condition string, args ...interface{}) *DeleteBuilder {
	d.conditions = append(d.conditions, condition)
	d.args = append(d.args, args...)
	return d
}

// Build 构建DELETE语句
func (d *DeleteBuilder) Build() string {
	query := "DELETE FROM " + d.table
	if len(d.conditions) > 0 {
		query += " WHERE " + strings.Join(d.conditions, " AND ")
	}
	return query
}

// Args 返回参数列表
func (d *DeleteBuilder) Args() []interface{} {
	return d.args
}

// Exec 执行DELETE
func (d *DeleteBuilder) Exec(ctx context.Context, q Querier, dialect Dialect) (sql.Result, error) {
	return q.ExecContext(ctx, dialect.Rebind(d.Build()), d.args...)
}
