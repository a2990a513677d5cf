package oath

// User is the in-memory aggregate of one account's second-factor state.
//
// It is constructed by the repository on lookup and mutated only through
// repository operations. All credentials on a user belong to the same
// mechanism; the repository rejects a second mechanism while one is enabled.
type User struct {
	identity  string
	centralID int64
	keys      []Key
}

// NewUser creates a user aggregate. A centralID of zero means the account has
// no stable identity and cannot own persisted credentials.
func NewUser(identity string, centralID int64) *User {
	return &User{identity: identity, centralID: centralID}
}

// Identity returns the account identifier the user was looked up by.
func (u *User) Identity() string { return u.identity }

// CentralID returns the stable numeric account identity, or zero.
func (u *User) CentralID() int64 { return u.centralID }

// CanPersist reports whether credentials can be attributed to this account.
func (u *User) CanPersist() bool { return u.centralID != 0 }

// Keys returns the user's credentials.
func (u *User) Keys() []Key {
	return append([]Key(nil), u.keys...)
}

// HasKeys reports whether the user has any credential.
func (u *User) HasKeys() bool { return len(u.keys) > 0 }

// Module returns the name of the enabled mechanism, or "" when the user has
// no second factor.
func (u *User) Module() string {
	if len(u.keys) == 0 {
		return ""
	}
	return u.keys[0].Module()
}

func (u *User) addKey(key Key) {
	u.keys = append(u.keys, key)
}

func (u *User) removeKey(id int64) {
	for i, k := range u.keys {
		if k.ID() == id {
			u.keys = append(u.keys[:i], u.keys[i+1:]...)
			return
		}
	}
}

func (u *User) removeModuleKeys(module string) {
	kept := u.keys[:0]
	for _, k := range u.keys {
		if k.Module() != module {
			kept = append(kept, k)
		}
	}
	u.keys = kept
}

func (u *User) clearKeys() {
	u.keys = nil
}
