package rbac

import (
	"fmt"

	"github.com/atlas-ums/atlas-ums/internal/rls"
)

// ModelPerms holds the four canonical permission codes of one model. Building
// them once at startup keeps lookups typed instead of assembling permission
// strings ad hoc at call sites.
type ModelPerms struct {
	View   string
	Add    string
	Change string
	Delete string
}

// PermsFor derives the canonical permission codes for a model.
func PermsFor(app, model string) ModelPerms {
	return ModelPerms{
		View:   fmt.Sprintf("%s.view_%s", app, model),
		Add:    fmt.Sprintf("%s.add_%s", app, model),
		Change: fmt.Sprintf("%s.change_%s", app, model),
		Delete: fmt.Sprintf("%s.delete_%s", app, model),
	}
}

// All returns the codes in view/add/change/delete order.
func (m ModelPerms) All() []string {
	return []string{m.View, m.Add, m.Change, m.Delete}
}

// catalogModels enumerates every model carrying the canonical permission
// quadruple. Seeding and the admin permission listing derive from this table.
var catalogModels = []struct {
	app, model, label string
}{
	{"organization", "faculty", "Faculty"},
	{"organization", "program", "Program"},
	{"users", "user", "User"},
	{"rbac", "group", "Group"},
	{"academic", "course", "Course"},
	{"academic", "class", "Class"},
	{"academic", "schedule", "Schedule"},
	{"scores", "score", "Score"},
	{"activities", "activity", "Activity"},
	{"activities", "activitytemplate", "Activity Template"},
}

// Catalog lists every permission the system knows: the CRUD quadruple per
// model plus the three bespoke access-tier permissions.
func Catalog() []Permission {
	var perms []Permission
	for _, m := range catalogModels {
		mp := PermsFor(m.app, m.model)
		perms = append(perms,
			Permission{Code: mp.View, Name: "Can view " + m.label},
			Permission{Code: mp.Add, Name: "Can add " + m.label},
			Permission{Code: mp.Change, Name: "Can change " + m.label},
			Permission{Code: mp.Delete, Name: "Can delete " + m.label},
		)
	}
	perms = append(perms,
		Permission{Code: rls.PermAccessGlobal, Name: "Global Access"},
		Permission{Code: rls.PermAccessFacultyWide, Name: "Faculty Wide Access"},
		Permission{Code: rls.PermAccessProgramWide, Name: "Program Wide Access"},
	)
	return perms
}
