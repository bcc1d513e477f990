package storage

// Key identifies a value in the persistent store.
//
// The keyspace is closed: Key has no exported constructor, so only the keys
// declared in this package can address the medium. This prevents collisions
// between features that would otherwise pick free-form names.
type Key struct {
	name string
}

// Authentication keys.
var (
	KeyAuthToken = Key{name: "auth_token"}
	KeyAuthUser  = Key{name: "auth_user"}
	KeyIsAdmin   = Key{name: "isAdmin"}
)

// Application keys.
var (
	KeyTheme     = Key{name: "app_theme"}
	KeyLanguage  = Key{name: "app_language"}
	KeyLastRoute = Key{name: "app_last_route"}
)

// AllKeys returns every declared key.
func AllKeys() []Key {
	return []Key{
		KeyAuthToken,
		KeyAuthUser,
		KeyIsAdmin,
		KeyTheme,
		KeyLanguage,
		KeyLastRoute,
	}
}

// String returns the name the key is stored under.
func (k Key) String() string {
	return k.name
}

// IsZero reports whether k is the zero Key, which addresses nothing.
func (k Key) IsZero() bool {
	return k.name == ""
}

// ParseKey returns the declared key stored under name.
func ParseKey(name string) (Key, bool) {
	for _, k := range AllKeys() {
		if k.name == name {
			return k, true
		}
	}
	return Key{}, false
}
