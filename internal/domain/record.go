package domain

// Record is implemented by every model served through a collection.
type Record interface {
	GetID() uint
	TableName() string
}

// GetID returns the primary key.
func (u User) GetID() uint { return u.ID }

// GetID returns the primary key.
func (j Job) GetID() uint { return j.ID }

// GetID returns the primary key.
func (c Company) GetID() uint { return c.ID }

// GetID returns the primary key.
func (r Referral) GetID() uint { return r.ID }
