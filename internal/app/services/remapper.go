package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"gorm.io/datatypes"

	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
)

// Payload is an enrollment payload as submitted by intake, before remapping
type Payload map[string]interface{}

// fieldRule maps one destination attribute to the source keys it may arrive under.
// The first source holding a non-null value wins.
type fieldRule struct {
	dest     string
	sources  []string
	required bool
}

// rule accepts dest plus its snake_case and camelCase spellings and any aliases
func rule(dest string, aliases ...string) fieldRule {
	seen := map[string]bool{}
	var sources []string
	for _, s := range append([]string{dest, snakeCase(dest), camelCase(dest)}, aliases...) {
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	return fieldRule{dest: dest, sources: sources}
}

func required(r fieldRule) fieldRule {
	r.required = true
	return r
}

var personalRules = []fieldRule{
	required(rule("nome_completo")),
	rule("tem_nome_social"),
	rule("nome_social"),
	rule("tem_nome_afetivo"),
	rule("nome_afetivo"),
	rule("sexo"),
	rule("idade"),
	rule("rg"),
	rule("rg_digito"),
	rule("rg_uf", "rgUF"),
	rule("rg_data_emissao"),
	rule("cpf"),
	rule("raca_cor"),
	rule("data_nascimento"),
	rule("nome_mae"),
	rule("nome_pai"),
	rule("nacionalidade"),
	rule("nascimento_uf", "nascimentoUF"),
	rule("nascimento_cidade"),
	rule("pais_origem"),
	rule("telefone"),
	rule("email"),
	rule("possui_internet"),
	rule("possui_device"),
	rule("is_gemeo"),
	rule("nome_gemeo"),
	rule("trabalha"),
	rule("profissao"),
	rule("empresa"),
	rule("is_pcd", "isPCD"),
	rule("deficiencia"),
}

var addressRules = []fieldRule{
	rule("cep"),
	rule("logradouro"),
	rule("numero"),
	rule("complemento"),
	rule("bairro"),
	rule("nomeCidade"),
	rule("ufCidade"),
	rule("zona"),
	rule("temLocalizacaoDiferenciada"),
	rule("localizacaoDiferenciada"),
}

var schoolingRules = []fieldRule{
	rule("nivel_ensino"),
	rule("itinerario_formativo"),
	rule("ultima_serie_concluida"),
	rule("ra"),
	rule("tipo_escola"),
	rule("nome_escola"),
	rule("estudou_no_ceeja"),
	rule("tem_progressao_parcial"),
	rule("progressao_parcial_disciplinas"),
	rule("eliminou_disciplina"),
	rule("eliminou_disciplina_nivel"),
	rule("eliminou_disciplinas"),
	rule("optou_ensino_religioso"),
	rule("optou_educacao_fisica"),
	rule("aceitou_termos"),
	rule("data_aceite"),
}

// DecodePayload parses a stored payload. Empty and JSON null payloads decode to nil.
func DecodePayload(kind models.EntityKind, raw []byte) (Payload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var p Payload
	if err := dec.Decode(&p); err != nil {
		return nil, apperrors.NewFieldError(string(kind), "payload", "must be a JSON object")
	}
	return p, nil
}

// RemapPersonal builds the personal record from a payload in either spelling
func RemapPersonal(p Payload) (*models.PersonalData, error) {
	return remapInto[models.PersonalData](models.KindPersonal, personalRules, p)
}

// RemapAddress builds the address record from a payload in either spelling
func RemapAddress(p Payload) (*models.AddressData, error) {
	out, err := remapInto[models.AddressData](models.KindAddress, addressRules, p)
	if err != nil {
		return nil, err
	}
	if out.Zona != nil && strings.TrimSpace(string(*out.Zona)) == "" {
		out.Zona = nil
	}
	if out.Zona != nil {
		zone, ok := normalizeZone(string(*out.Zona))
		if !ok {
			return nil, apperrors.NewFieldError(string(models.KindAddress), "zona", "must be Urbana or Rural")
		}
		out.Zona = &zone
	}
	return out, nil
}

// RemapSchooling builds the schooling record from a payload in either spelling
func RemapSchooling(p Payload) (*models.SchoolingData, error) {
	return remapInto[models.SchoolingData](models.KindSchooling, schoolingRules, p)
}

// Remap dispatches on kind and returns *models.PersonalData, *models.AddressData
// or *models.SchoolingData
func Remap(kind models.EntityKind, p Payload) (interface{}, error) {
	switch kind {
	case models.KindPersonal:
		return RemapPersonal(p)
	case models.KindAddress:
		return RemapAddress(p)
	case models.KindSchooling:
		return RemapSchooling(p)
	}
	return nil, apperrors.NewFieldError("", "kind", fmt.Sprintf("unknown entity kind %q", kind))
}

func remapInto[T any](kind models.EntityKind, rules []fieldRule, p Payload) (*T, error) {
	out := new(T)
	fields := jsonFields(reflect.TypeOf(out).Elem())
	rv := reflect.ValueOf(out).Elem()

	for _, r := range rules {
		raw, found := firstNonNull(p, r.sources)
		if !found {
			if r.required {
				return nil, apperrors.NewFieldError(string(kind), r.dest, "is required")
			}
			continue
		}

		idx, ok := fields[r.dest]
		if !ok {
			panic(fmt.Sprintf("services: %s has no field tagged %q", rv.Type(), r.dest))
		}
		if err := assign(rv.Field(idx), raw); err != nil {
			return nil, apperrors.NewFieldError(string(kind), r.dest, err.Error())
		}
		if r.required && isBlank(rv.Field(idx)) {
			return nil, apperrors.NewFieldError(string(kind), r.dest, "is required")
		}
	}
	return out, nil
}

func firstNonNull(p Payload, sources []string) (interface{}, bool) {
	for _, key := range sources {
		if v, ok := p[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

var disciplinesType = reflect.TypeOf((*datatypes.JSONSlice[models.Discipline])(nil))

// assign coerces raw into the pointer field f. Blank values for non-text
// fields leave the field unset.
func assign(f reflect.Value, raw interface{}) error {
	if f.Type() == disciplinesType {
		list, err := toDisciplines(raw)
		if err != nil {
			return err
		}
		slice := datatypes.NewJSONSlice(list)
		f.Set(reflect.ValueOf(&slice))
		return nil
	}

	elem := f.Type().Elem()
	switch elem.Kind() {
	case reflect.String:
		s, err := toText(raw)
		if err != nil {
			return err
		}
		v := reflect.New(elem)
		v.Elem().SetString(s)
		f.Set(v)
	case reflect.Bool:
		b, set, err := toBool(raw)
		if err != nil || !set {
			return err
		}
		v := reflect.New(elem)
		v.Elem().SetBool(b)
		f.Set(v)
	default:
		return fmt.Errorf("has unsupported type %s", elem)
	}
	return nil
}

func toText(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return "", fmt.Errorf("must be text, got %s", shape(raw))
}

func toBool(raw interface{}) (value, set bool, err error) {
	switch v := raw.(type) {
	case bool:
		return v, true, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
			return false, false, nil
		case "true", "sim", "s", "yes", "1":
			return true, true, nil
		case "false", "nao", "não", "n", "no", "0":
			return false, true, nil
		}
		return false, false, fmt.Errorf("must be a boolean, got %q", v)
	case json.Number:
		switch v.String() {
		case "1":
			return true, true, nil
		case "0":
			return false, true, nil
		}
	case float64:
		switch v {
		case 1:
			return true, true, nil
		case 0:
			return false, true, nil
		}
	}
	return false, false, fmt.Errorf("must be a boolean, got %s", shape(raw))
}

func toDisciplines(raw interface{}) ([]models.Discipline, error) {
	switch v := raw.(type) {
	case string:
		// legacy form: comma separated names
		var out []models.Discipline
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, models.Discipline{Disciplina: name})
			}
		}
		if out == nil {
			out = []models.Discipline{}
		}
		return out, nil
	case []interface{}:
		out := make([]models.Discipline, 0, len(v))
		for i, item := range v {
			switch it := item.(type) {
			case string:
				out = append(out, models.Discipline{Disciplina: it})
			case map[string]interface{}:
				name, ok := it["disciplina"].(string)
				if !ok {
					return nil, fmt.Errorf("item %d has no disciplina", i)
				}
				out = append(out, models.Discipline{Disciplina: name})
			default:
				return nil, fmt.Errorf("item %d must be a string or {disciplina}, got %s", i, shape(item))
			}
		}
		return out, nil
	}
	return nil, fmt.Errorf("must be a list, got %s", shape(raw))
}

func normalizeZone(z string) (models.Zone, bool) {
	switch strings.ToLower(strings.TrimSpace(z)) {
	case "urbana", "urbano":
		return models.ZoneUrban, true
	case "rural":
		return models.ZoneRural, true
	}
	return "", false
}

func isBlank(f reflect.Value) bool {
	return f.IsNil() || (f.Elem().Kind() == reflect.String && strings.TrimSpace(f.Elem().String()) == "")
}

func shape(v interface{}) string {
	switch v.(type) {
	case string:
		return "text"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []interface{}:
		return "list"
	case map[string]interface{}:
		return "object"
	}
	return fmt.Sprintf("%T", v)
}

var jsonFieldCache sync.Map

// jsonFields maps json tag names to field indexes of t
func jsonFields(t reflect.Type) map[string]int {
	if cached, ok := jsonFieldCache.Load(t); ok {
		return cached.(map[string]int)
	}
	out := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name != "" && name != "-" {
			out[name] = i
		}
	}
	jsonFieldCache.Store(t, out)
	return out
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func camelCase(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
