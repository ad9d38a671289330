package taxonomy

import (
	"fmt"
)

// Catalog 课程目录：课程分类到课程名的固定映射。
// 启动时从配置加载,运行期只读。
type Catalog struct {
	order   []string
	courses map[string][]string
	parent  map[string]string
}

// Entry is one configured course category with its ordered course names.
type Entry struct {
	Category string   `mapstructure:"category" json:"category"`
	Courses  []string `mapstructure:"courses" json:"courses"`
}

// NewCatalog builds a catalog from configuration entries. Category order and
// course order are preserved. Duplicate categories or course names (a course
// must have exactly one parent category) are rejected.
func NewCatalog(entries []Entry) (*Catalog, error) {
	c := &Catalog{
		courses: make(map[string][]string, len(entries)),
		parent:  make(map[string]string),
	}
	for _, e := range entries {
		if e.Category == "" {
			return nil, fmt.Errorf("catalog entry with empty category")
		}
		if _, dup := c.courses[e.Category]; dup {
			return nil, fmt.Errorf("duplicate course category %q", e.Category)
		}
		if len(e.Courses) == 0 {
			return nil, fmt.Errorf("course category %q has no courses", e.Category)
		}
		names := make([]string, 0, len(e.Courses))
		for _, name := range e.Courses {
			if prev, dup := c.parent[name]; dup {
				return nil, fmt.Errorf("course %q listed under both %q and %q", name, prev, e.Category)
			}
			c.parent[name] = e.Category
			names = append(names, name)
		}
		c.order = append(c.order, e.Category)
		c.courses[e.Category] = names
	}
	return c, nil
}

// DefaultEntries is the built-in catalog used when the configuration file
// carries no catalog section.
func DefaultEntries() []Entry {
	return []Entry{
		{Category: "Management", Courses: []string{
			"Product Management", "Project Management", "Business Analytics", "Operations Management",
		}},
		{Category: "AI/ML", Courses: []string{
			"Machine Learning", "Deep Learning", "Natural Language Processing", "Computer Vision",
		}},
		{Category: "Data Science", Courses: []string{
			"Data Analytics", "Big Data Engineering", "Data Visualization", "Applied Statistics",
		}},
		{Category: "Marketing", Courses: []string{
			"Digital Marketing", "Brand Management", "Growth Marketing",
		}},
		{Category: "Software Development", Courses: []string{
			"Full Stack Development", "Backend Development", "Mobile Development", "DevOps Engineering",
		}},
		{Category: "Electronics", Courses: []string{
			"Embedded Systems", "VLSI Design", "IoT Systems",
		}},
	}
}

// Default returns the built-in catalog. Panics only on a programming error
// in DefaultEntries, never on user input.
func Default() *Catalog {
	c, err := NewCatalog(DefaultEntries())
	if err != nil {
		panic(err)
	}
	return c
}

// Categories returns the course categories in configured order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Courses returns the course names of one category in configured order,
// or nil for an unknown category.
func (c *Catalog) Courses(category string) []string {
	names, ok := c.courses[category]
	if !ok {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Parent returns the owning category of a course name.
func (c *Catalog) Parent(course string) (string, bool) {
	cat, ok := c.parent[course]
	return cat, ok
}

// HasCategory reports whether category exists in the catalog.
func (c *Catalog) HasCategory(category string) bool {
	_, ok := c.courses[category]
	return ok
}

// Entries returns the catalog content in configured order, for API listing.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, cat := range c.order {
		out = append(out, Entry{Category: cat, Courses: c.Courses(cat)})
	}
	return out
}
