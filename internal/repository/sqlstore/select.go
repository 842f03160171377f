package sqlstore

import (
	"fmt"

	"github.com/Masterminds/squirrel"

	"registrar/internal/domain"
	"registrar/internal/query"
)

// Aliases used in translated queries: t is the target table, r the related
// table and j the enrollment join table.
const (
	targetAlias  = "t"
	relatedAlias = "r"
)

// joinClauses returns the JOIN clauses linking the target to the related table
func joinClauses(target, related domain.EntityType) ([]string, error) {
	rel, ok := query.RelationBetween(target, related)
	if !ok {
		return nil, fmt.Errorf("no relation between %s and %s", target, related)
	}
	switch {
	case rel == query.RelationEnrollment && target == domain.TypeStudent:
		return []string{"enrollment j ON j.student_id = t.id", "course r ON r.id = j.course_id"}, nil
	case rel == query.RelationEnrollment:
		return []string{"enrollment j ON j.course_id = t.id", "student r ON r.id = j.student_id"}, nil
	case target == domain.TypeCourse:
		return []string{"professor r ON r.id = t.professor_id"}, nil
	default:
		return []string{"course r ON r.professor_id = t.id"}, nil
	}
}

// buildSelect translates a validated query into one SELECT statement
func (d dialect) buildSelect(q query.Query) (squirrel.SelectBuilder, error) {
	tb, err := tableFor(q.Target)
	if err != nil {
		return squirrel.SelectBuilder{}, err
	}
	b := d.sb.Select(tb.selectList(targetAlias)...).From(tb.from(targetAlias))

	for _, pred := range conditions(targetAlias, q.Filters) {
		b = b.Where(pred)
	}
	if q.Join != nil {
		// A row reached through several join rows comes back once
		b = b.Distinct()
		clauses, err := joinClauses(q.Target, q.Join.Related)
		if err != nil {
			return squirrel.SelectBuilder{}, err
		}
		for _, clause := range clauses {
			b = b.Join(clause)
		}
		for _, pred := range conditions(relatedAlias, q.Join.Filters) {
			b = b.Where(pred)
		}
	}

	for _, o := range q.Orders {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		b = b.OrderBy(fmt.Sprintf("%s.%s %s", targetAlias, o.Field, dir))
	}

	return d.paginate(b, q.Offset, q.Limit, q.HasLimit), nil
}

// buildUpdate translates a validated bulk update into one UPDATE statement
func (d dialect) buildUpdate(u query.Update) (squirrel.UpdateBuilder, error) {
	tb, err := tableFor(u.Target)
	if err != nil {
		return squirrel.UpdateBuilder{}, err
	}
	set := make(map[string]any, len(u.Set))
	for _, a := range u.Set {
		set[string(a.Field)] = a.Value
	}
	b := d.sb.Update(tb.name).SetMap(set)
	for _, pred := range conditions("", u.Filters) {
		b = b.Where(pred)
	}
	return b, nil
}
