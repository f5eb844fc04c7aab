package errors

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// keyGeneric is the catalogue entry for codes without a specific message.
const keyGeneric = "GENERIC"

// supported lists the response languages; the first one is the default.
var supported = []language.Tag{language.BrazilianPortuguese, language.English}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.BrazilianPortuguese: {
		CodeEmailExists:     "Este e-mail já está cadastrado.",
		CodeValidationError: "Verifique os campos informados.",
		CodeConflict:        "O registro foi alterado por outro usuário. Atualize e tente novamente.",
		CodeBadRequest:      "Requisição inválida.",
		CodeForbidden:       "Você não tem permissão para esta ação.",
		CodeNotFound:        "Registro não encontrado.",
		CodeUnauthorized:    "Sua sessão expirou. Entre novamente.",
		CodeSlugTaken:       "Este endereço de link já está em uso.",
		keyGeneric:          "Ocorreu um erro inesperado. Tente novamente.",
	},
	language.English: {
		CodeEmailExists:     "This e-mail is already registered.",
		CodeValidationError: "Please review the highlighted fields.",
		CodeConflict:        "The record was changed by someone else. Refresh and try again.",
		CodeBadRequest:      "Invalid request.",
		CodeForbidden:       "You are not allowed to perform this action.",
		CodeNotFound:        "Record not found.",
		CodeUnauthorized:    "Your session has expired. Please sign in again.",
		CodeSlugTaken:       "This link address is already taken.",
		keyGeneric:          "Something went wrong. Please try again.",
	},
}

var catalogue = buildCatalogue()

func buildCatalogue() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(supported[0]))
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Localize maps a backend error code to a user-facing message in the best
// match for an Accept-Language value. Unknown codes get the generic message;
// unsupported languages get pt-BR.
func Localize(code, acceptLanguage string) string {
	key := code
	if _, ok := messages[supported[0]][code]; !ok || code == "" {
		key = keyGeneric
	}
	return message.NewPrinter(MatchLanguage(acceptLanguage), message.Catalog(catalogue)).Sprintf(key)
}

// MatchLanguage negotiates an Accept-Language header against the supported
// languages.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return supported[0]
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return supported[0]
	}
	return supported[index]
}
