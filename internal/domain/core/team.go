package core

import "fmt"

// TeamPredicate returns a SQL condition that holds when userColumn belongs to
// the manager bound at $param: a direct report, or a member of a department
// the manager heads.
func TeamPredicate(userColumn string, param int) string {
	return fmt.Sprintf(`%s IN (
      SELECT tm.id FROM users tm
      WHERE tm.manager_id = $%d
         OR tm.department_id IN (SELECT td.id FROM departments td WHERE td.manager_id = $%d)
    )`, userColumn, param, param)
}
