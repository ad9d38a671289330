package taxonomy

import (
	"lms_support_backend/internal/model"
	"lms_support_backend/internal/util"
)

// Selection 文档打标时的当前选择状态。
// 两个维度通过级联规则保持一致：选分类会带上它的全部课程，
// 去掉某分类下最后一门课程会自动取消该分类。
// 反向不成立：选课程不会自动选中其父分类（刻意的单向级联）。
type Selection struct {
	Categories []string `json:"categories"`
	Courses    []string `json:"courses"`
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := list[:0:0]
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

// ToggleCategory flips category membership in sel. Newly selecting a
// category adds all its course names to the selected courses; deselecting
// removes all of them. The input selection is not mutated.
func (c *Catalog) ToggleCategory(sel Selection, category string) (Selection, error) {
	courses, ok := c.courses[category]
	if !ok {
		return sel, util.NewValidationError("category", "unknown course category "+category)
	}

	next := Selection{
		Categories: append([]string(nil), sel.Categories...),
		Courses:    append([]string(nil), sel.Courses...),
	}

	if contains(next.Categories, category) {
		next.Categories = remove(next.Categories, category)
		for _, name := range courses {
			next.Courses = remove(next.Courses, name)
		}
		return next, nil
	}

	next.Categories = append(next.Categories, category)
	for _, name := range courses {
		if !contains(next.Courses, name) {
			next.Courses = append(next.Courses, name)
		}
	}
	return next, nil
}

// ToggleCourse flips a single course name in sel. Deselecting the last
// remaining course of a category deselects that category too. Selecting a
// course never selects its parent category.
func (c *Catalog) ToggleCourse(sel Selection, course string) (Selection, error) {
	parent, ok := c.parent[course]
	if !ok {
		return sel, util.NewValidationError("course", "unknown course name "+course)
	}

	next := Selection{
		Categories: append([]string(nil), sel.Categories...),
		Courses:    append([]string(nil), sel.Courses...),
	}

	if !contains(next.Courses, course) {
		next.Courses = append(next.Courses, course)
		return next, nil
	}

	next.Courses = remove(next.Courses, course)

	// 该分类是否还有已选课程
	for _, name := range c.courses[parent] {
		if contains(next.Courses, name) {
			return next, nil
		}
	}
	next.Categories = remove(next.Categories, parent)
	return next, nil
}

// AvailableCourses returns the union of course names of all selected
// categories, in catalog order. A course name supplied in a tag request
// must be reachable from this set.
func (c *Catalog) AvailableCourses(sel Selection) []string {
	var out []string
	for _, cat := range c.order {
		if !contains(sel.Categories, cat) {
			continue
		}
		out = append(out, c.courses[cat]...)
	}
	return out
}

// ValidateTagging checks a document tag request: the top-level category must
// be one of the three fixed document categories, at least one course
// category must be selected, and every selected course's parent category
// must itself be selected.
func (c *Catalog) ValidateTagging(topCategory model.DocumentCategory, categories, courses []string) error {
	if topCategory == "" {
		return util.NewValidationError("category", "top-level category is required")
	}
	if !topCategory.Valid() {
		return util.NewValidationError("category", "unknown document category "+string(topCategory))
	}
	if len(categories) == 0 {
		return util.NewValidationError("courseCategories", "at least one course category must be selected")
	}
	for _, cat := range categories {
		if !c.HasCategory(cat) {
			return util.NewValidationError("courseCategories", "unknown course category "+cat)
		}
	}
	for _, course := range courses {
		parent, ok := c.parent[course]
		if !ok {
			return util.NewValidationError("courseNames", "unknown course name "+course)
		}
		if !contains(categories, parent) {
			return util.NewValidationError("courseNames",
				"course "+course+" requires its category "+parent+" to be selected")
		}
	}
	return nil
}
