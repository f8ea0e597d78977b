package models

// User is a directory user as supplied by the directory service.
type User struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DepartmentID string `json:"department_id"`
	Department   string `json:"department"`
	Role         string `json:"role"` // title, e.g. "安全主管"
}

// Department carries a manager pointer used by the manager-routing
// strategies.
type Department struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ManagerID string `json:"manager_id"`
}

// DirectoryData is the user/department snapshot the resolver works
// against. The engine never invents identities outside of it.
type DirectoryData struct {
	Users       []User       `json:"users"`
	Departments []Department `json:"departments"`
}

// UserByID finds a user by id.
func (d *DirectoryData) UserByID(id string) (User, bool) {
	if d == nil {
		return User{}, false
	}
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// DepartmentByID finds a department by id.
func (d *DirectoryData) DepartmentByID(id string) (Department, bool) {
	if d == nil {
		return Department{}, false
	}
	for _, dept := range d.Departments {
		if dept.ID == id {
			return dept, true
		}
	}
	return Department{}, false
}

// DepartmentByRef finds a department by id first, then by name. Step
// configs and form values may carry either.
func (d *DirectoryData) DepartmentByRef(ref string) (Department, bool) {
	if dept, ok := d.DepartmentByID(ref); ok {
		return dept, true
	}
	if d == nil {
		return Department{}, false
	}
	for _, dept := range d.Departments {
		if dept.Name == ref {
			return dept, true
		}
	}
	return Department{}, false
}

// ManagerOf resolves a department reference to its manager.
func (d *DirectoryData) ManagerOf(ref string) (User, bool) {
	dept, ok := d.DepartmentByRef(ref)
	if !ok || dept.ManagerID == "" {
		return User{}, false
	}
	return d.UserByID(dept.ManagerID)
}
