package errors

import (
	"sort"

	"golang.org/x/text/language"
)

// Messages is a locale-aware catalog of user-facing messages keyed by error code.
// A Messages value is immutable and safe for concurrent use.
type Messages struct {
	matcher  language.Matcher
	catalogs []map[ErrorCode]string
}

var spanish = map[ErrorCode]string{
	CodeValidation:           "Por favor, verifica los datos ingresados.",
	CodeInvalidInput:         "Los datos ingresados no son válidos.",
	CodeRequiredField:        "Algunos campos requeridos están vacíos.",
	CodeUnauthorized:         "Tu sesión ha expirado. Por favor, inicia sesión nuevamente.",
	CodeForbidden:            "No tienes permisos para realizar esta acción.",
	CodeSessionExpired:       "Tu sesión ha expirado. Por favor, inicia sesión nuevamente.",
	CodeNetwork:              "No se pudo conectar con el servidor. Verifica tu conexión.",
	CodeTimeout:              "La operación tardó demasiado tiempo. Intenta nuevamente.",
	CodeServer:               "Ocurrió un error en el servidor. Intenta más tarde.",
	CodeNotFound:             "El recurso solicitado no fue encontrado.",
	CodeAlreadyExists:        "El recurso ya existe.",
	CodeConflict:             "Conflicto al procesar la solicitud.",
	CodeStorageQuotaExceeded: "No hay espacio disponible en el almacenamiento.",
	CodeStorageNotAvailable:  "El almacenamiento no está disponible.",
	CodeUnknown:              "Ocurrió un error inesperado. Por favor, intenta nuevamente.",
}

var english = map[ErrorCode]string{
	CodeValidation:           "Please check the data you entered.",
	CodeInvalidInput:         "The data you entered is not valid.",
	CodeRequiredField:        "Some required fields are empty.",
	CodeUnauthorized:         "Your session has expired. Please sign in again.",
	CodeForbidden:            "You do not have permission to perform this action.",
	CodeSessionExpired:       "Your session has expired. Please sign in again.",
	CodeNetwork:              "Could not reach the server. Check your connection.",
	CodeTimeout:              "The operation took too long. Please try again.",
	CodeServer:               "A server error occurred. Please try again later.",
	CodeNotFound:             "The requested resource was not found.",
	CodeAlreadyExists:        "The resource already exists.",
	CodeConflict:             "The request could not be processed due to a conflict.",
	CodeStorageQuotaExceeded: "There is no space left in storage.",
	CodeStorageNotAvailable:  "Storage is not available.",
	CodeUnknown:              "An unexpected error occurred. Please try again.",
}

// DefaultMessages returns the built-in catalog: Spanish (default) and English.
func DefaultMessages() *Messages {
	return NewMessages(language.Spanish, map[language.Tag]map[ErrorCode]string{
		language.Spanish: spanish,
		language.English: english,
	})
}

// NewMessages builds a catalog from per-locale message tables.
// fallback is used when a requested locale matches none of the tables; it
// must be one of the keys of catalogs. Catalogs should define CodeUnknown so
// Lookup can always return a non-empty string.
func NewMessages(fallback language.Tag, catalogs map[language.Tag]map[ErrorCode]string) *Messages {
	tags := make([]language.Tag, 0, len(catalogs))
	for tag := range catalogs {
		if tag != fallback {
			tags = append(tags, tag)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].String() < tags[j].String() })
	// The matcher treats the first supported tag as the default.
	tags = append([]language.Tag{fallback}, tags...)

	m := &Messages{
		matcher:  language.NewMatcher(tags),
		catalogs: make([]map[ErrorCode]string, len(tags)),
	}
	for i, tag := range tags {
		table := make(map[ErrorCode]string, len(catalogs[tag]))
		for code, msg := range catalogs[tag] {
			table[code] = msg
		}
		m.catalogs[i] = table
	}
	return m
}

// Lookup returns the user-facing message for err in the best matching locale.
//
// The catalog entry for the error's code wins; otherwise the error's own
// message is used; otherwise the catalog's CodeUnknown message. The result
// is never empty.
func (m *Messages) Lookup(locale string, err error) string {
	if err == nil {
		return ""
	}
	appErr := Normalize(err)

	_, idx := language.MatchStrings(m.matcher, locale)
	table := m.catalogs[idx]

	if msg := table[appErr.Code()]; msg != "" {
		return msg
	}
	if msg := appErr.Message(); msg != "" {
		return msg
	}
	if msg := table[CodeUnknown]; msg != "" {
		return msg
	}
	return unknownMessage
}
