package membership

// Membership ties a connection to the room and identity it joined as.
type Membership struct {
	Code string
	UID  string
}

// Tracker is the connection -> membership side table. A connection has at
// most one membership at a time.
//
// Tracker is not safe for concurrent use; it belongs to the gateway hub.
type Tracker struct {
	byConn map[string]Membership
}

func NewTracker() *Tracker {
	return &Tracker{byConn: make(map[string]Membership)}
}

// Get returns the membership of conn.
func (t *Tracker) Get(conn string) (Membership, bool) {
	m, ok := t.byConn[conn]
	return m, ok
}

// Set records m for conn. When conn already belonged somewhere else the old
// membership is returned with switched set; the caller leaves it.
func (t *Tracker) Set(conn string, m Membership) (prev Membership, switched bool) {
	prev, had := t.byConn[conn]
	t.byConn[conn] = m
	return prev, had && prev != m
}

// Clear drops the membership of conn and returns what was dropped.
func (t *Tracker) Clear(conn string) (Membership, bool) {
	m, ok := t.byConn[conn]
	delete(t.byConn, conn)
	return m, ok
}

// Conns returns the connections joined to code.
func (t *Tracker) Conns(code string) []string {
	var out []string
	for conn, m := range t.byConn {
		if m.Code == code {
			out = append(out, conn)
		}
	}
	return out
}

func (t *Tracker) Len() int { return len(t.byConn) }
