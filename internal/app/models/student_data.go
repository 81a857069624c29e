package models

import (
	"reflect"
	"time"

	"gorm.io/datatypes"
)

// PersonalData holds the identity attributes of a student (one row per student)
type PersonalData struct {
	ID               PersonalDataID `json:"id" db:"id"`
	StudentID        *StudentID     `json:"student_id,omitempty" db:"student_id"`
	NomeCompleto     *string        `json:"nome_completo,omitempty" db:"nome_completo"`
	TemNomeSocial    *bool          `json:"tem_nome_social,omitempty" db:"tem_nome_social"`
	NomeSocial       *string        `json:"nome_social,omitempty" db:"nome_social"`
	TemNomeAfetivo   *bool          `json:"tem_nome_afetivo,omitempty" db:"tem_nome_afetivo"`
	NomeAfetivo      *string        `json:"nome_afetivo,omitempty" db:"nome_afetivo"`
	Sexo             *string        `json:"sexo,omitempty" db:"sexo"`
	Idade            *string        `json:"idade,omitempty" db:"idade"`
	RG               *string        `json:"rg,omitempty" db:"rg"`
	RGDigito         *string        `json:"rg_digito,omitempty" db:"rg_digito"`
	RGUF             *string        `json:"rg_uf,omitempty" db:"rg_uf" binding:"omitempty,uf"`
	RGDataEmissao    *string        `json:"rg_data_emissao,omitempty" db:"rg_data_emissao"`
	CPF              *string        `json:"cpf,omitempty" db:"cpf" binding:"omitempty,cpf"`
	RacaCor          *string        `json:"raca_cor,omitempty" db:"raca_cor"`
	DataNascimento   *string        `json:"data_nascimento,omitempty" db:"data_nascimento"`
	NomeMae          *string        `json:"nome_mae,omitempty" db:"nome_mae"`
	NomePai          *string        `json:"nome_pai,omitempty" db:"nome_pai"`
	Nacionalidade    *string        `json:"nacionalidade,omitempty" db:"nacionalidade"`
	NascimentoUF     *string        `json:"nascimento_uf,omitempty" db:"nascimento_uf" binding:"omitempty,uf"`
	NascimentoCidade *string        `json:"nascimento_cidade,omitempty" db:"nascimento_cidade"`
	PaisOrigem       *string        `json:"pais_origem,omitempty" db:"pais_origem"`
	Telefone         *string        `json:"telefone,omitempty" db:"telefone"`
	Email            *string        `json:"email,omitempty" db:"email"`
	PossuiInternet   *bool          `json:"possui_internet,omitempty" db:"possui_internet"`
	PossuiDevice     *bool          `json:"possui_device,omitempty" db:"possui_device"`
	IsGemeo          *bool          `json:"is_gemeo,omitempty" db:"is_gemeo"`
	NomeGemeo        *string        `json:"nome_gemeo,omitempty" db:"nome_gemeo"`
	Trabalha         *bool          `json:"trabalha,omitempty" db:"trabalha"`
	Profissao        *string        `json:"profissao,omitempty" db:"profissao"`
	Empresa          *string        `json:"empresa,omitempty" db:"empresa"`
	IsPCD            *bool          `json:"is_pcd,omitempty" db:"is_pcd"`
	Deficiencia      *string        `json:"deficiencia,omitempty" db:"deficiencia"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// OwnerOr returns the owning student, or fallback when the row predates the owner column
func (p *PersonalData) OwnerOr(fallback StudentID) StudentID {
	if p.StudentID != nil && *p.StudentID != "" {
		return *p.StudentID
	}
	return fallback
}

// SetOwner attaches the record to a student
func (p *PersonalData) SetOwner(id StudentID) { p.StudentID = &id }

// RecordID returns the row id
func (p *PersonalData) RecordID() string { return string(p.ID) }

func (p *PersonalData) SetRecordID(id string) { p.ID = PersonalDataID(id) }

// AddressData is the home address of a student. Some columns keep the camelCase
// names of the deployed schema.
type AddressData struct {
	ID                         AddressID  `json:"id,omitempty" db:"id"`
	StudentID                  *StudentID `json:"student_id,omitempty" db:"student_id"`
	CEP                        *string    `json:"cep,omitempty" db:"cep" binding:"omitempty,cep"`
	Logradouro                 *string    `json:"logradouro,omitempty" db:"logradouro"`
	Numero                     *string    `json:"numero,omitempty" db:"numero"`
	Complemento                *string    `json:"complemento,omitempty" db:"complemento"`
	Bairro                     *string    `json:"bairro,omitempty" db:"bairro"`
	NomeCidade                 *string    `json:"nomeCidade,omitempty" db:"nomeCidade"`
	UFCidade                   *string    `json:"ufCidade,omitempty" db:"ufCidade" binding:"omitempty,uf"`
	Zona                       *Zone      `json:"zona,omitempty" db:"zona"`
	TemLocalizacaoDiferenciada *bool      `json:"temLocalizacaoDiferenciada,omitempty" db:"temLocalizacaoDiferenciada"`
	LocalizacaoDiferenciada    *string    `json:"localizacaoDiferenciada,omitempty" db:"localizacaoDiferenciada"`
	CreatedAt                  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at" db:"updated_at"`
}

// HasContent reports whether any attribute besides the keys is populated
func (a *AddressData) HasContent() bool { return hasContent(a) }

func (a *AddressData) SetOwner(id StudentID) { a.StudentID = &id }
func (a *AddressData) RecordID() string      { return string(a.ID) }
func (a *AddressData) SetRecordID(id string)  { a.ID = AddressID(id) }

// Discipline is one subject carried over under partial progression
type Discipline struct {
	Disciplina string `json:"disciplina"`
}

// SchoolingData is the prior schooling history of a student
type SchoolingData struct {
	ID                           SchoolingID                     `json:"id,omitempty" db:"id"`
	StudentID                    *StudentID                      `json:"student_id,omitempty" db:"student_id"`
	NivelEnsino                  *string                         `json:"nivel_ensino,omitempty" db:"nivel_ensino"`
	ItinerarioFormativo          *string                         `json:"itinerario_formativo,omitempty" db:"itinerario_formativo"`
	UltimaSerieConcluida         *string                         `json:"ultima_serie_concluida,omitempty" db:"ultima_serie_concluida"`
	RA                           *string                         `json:"ra,omitempty" db:"ra"`
	TipoEscola                   *string                         `json:"tipo_escola,omitempty" db:"tipo_escola"`
	NomeEscola                   *string                         `json:"nome_escola,omitempty" db:"nome_escola"`
	EstudouNoCeeja               *bool                           `json:"estudou_no_ceeja,omitempty" db:"estudou_no_ceeja"`
	TemProgressaoParcial         *bool                           `json:"tem_progressao_parcial,omitempty" db:"tem_progressao_parcial"`
	ProgressaoParcialDisciplinas *datatypes.JSONSlice[Discipline] `json:"progressao_parcial_disciplinas,omitempty" db:"progressao_parcial_disciplinas"`
	EliminouDisciplina           *bool                           `json:"eliminou_disciplina,omitempty" db:"eliminou_disciplina"`
	EliminouDisciplinaNivel      *string                         `json:"eliminou_disciplina_nivel,omitempty" db:"eliminou_disciplina_nivel"`
	EliminouDisciplinas          *string                         `json:"eliminou_disciplinas,omitempty" db:"eliminou_disciplinas"`
	OptouEnsinoReligioso         *bool                           `json:"optou_ensino_religioso,omitempty" db:"optou_ensino_religioso"`
	OptouEducacaoFisica          *bool                           `json:"optou_educacao_fisica,omitempty" db:"optou_educacao_fisica"`
	AceitouTermos                *bool                           `json:"aceitou_termos,omitempty" db:"aceitou_termos"`
	DataAceite                   *string                         `json:"data_aceite,omitempty" db:"data_aceite"`
	CreatedAt                    time.Time                       `json:"created_at" db:"created_at"`
	UpdatedAt                    time.Time                       `json:"updated_at" db:"updated_at"`
}

// HasContent reports whether any attribute besides the keys is populated
func (s *SchoolingData) HasContent() bool { return hasContent(s) }

func (s *SchoolingData) SetOwner(id StudentID) { s.StudentID = &id }
func (s *SchoolingData) RecordID() string      { return string(s.ID) }
func (s *SchoolingData) SetRecordID(id string)  { s.ID = SchoolingID(id) }

// Aggregate is the single editable view of a student: the personal record with
// the address and schooling rows nested under their table names.
type Aggregate struct {
	PersonalData
	Addresses     AddressData   `json:"addresses"`
	SchoolingData SchoolingData `json:"schooling_data"`
	OwnerID       StudentID     `json:"owner_id"`
	EnrollmentID  *EnrollmentID `json:"enrollment_id,omitempty"`
}

// DocumentRecord is one uploaded scan with its extraction status
type DocumentRecord struct {
	ID           DocumentID     `json:"id" db:"id"`
	EnrollmentID DocumentSetKey `json:"enrollment_id" db:"enrollment_id"`
	FileName     string         `json:"file_name" db:"file_name"`
	StoragePath  string         `json:"storage_path" db:"storage_path"`
	DocumentType DocumentType   `json:"document_type" db:"document_type"`
	Status       *string        `json:"status,omitempty" db:"status"`
	FileSize     *int64         `json:"file_size,omitempty" db:"file_size"`
	UploadedAt   time.Time      `json:"uploaded_at" db:"uploaded_at"`
}

var keyColumns = map[string]bool{"id": true, "student_id": true, "created_at": true, "updated_at": true}

// hasContent treats nil and empty strings as unset, matching how the editor
// submits blank inputs.
func hasContent(v interface{}) bool {
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		col := rt.Field(i).Tag.Get("db")
		if col == "" || keyColumns[col] {
			continue
		}
		f := rv.Field(i)
		if f.Kind() != reflect.Ptr || f.IsNil() {
			continue
		}
		if e := f.Elem(); e.Kind() == reflect.String && e.String() == "" {
			continue
		}
		return true
	}
	return false
}
