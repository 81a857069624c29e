package models

// EntityKind names the three data domains carried by an enrollment
type EntityKind string

const (
	KindPersonal  EntityKind = "personal"
	KindAddress   EntityKind = "address"
	KindSchooling EntityKind = "schooling"
)

// EntityKinds lists the data domains in processing order
var EntityKinds = []EntityKind{KindPersonal, KindAddress, KindSchooling}

// Table names as deployed
const (
	TableEnrollments   = "enrollments"
	TableStudents      = "students"
	TablePersonalData  = "personal_data"
	TableAddresses     = "addresses"
	TableSchoolingData = "schooling_data"
	TableDocuments     = "document_extractions"
)

// Zone of residence
type Zone string

const (
	ZoneUrban Zone = "Urbana"
	ZoneRural Zone = "Rural"
)

// DocumentType is the category tag the extraction process assigns to an upload
type DocumentType string

const (
	DocRGFront              DocumentType = "rg_frente"
	DocRGBack               DocumentType = "rg_verso"
	DocCPF                  DocumentType = "cpf"
	DocBirthMarriage        DocumentType = "certidao_nascimento_casamento"
	DocProofOfResidence     DocumentType = "comprovante_residencia"
	DocHighSchoolRecord     DocumentType = "historico_medio"
	DocHighSchoolRecordBack DocumentType = "historico_medio_verso"
	DocElementaryRecord     DocumentType = "historico_fundamental"
	DocSchoolingStatement   DocumentType = "declaracao_escolaridade"
	DocOther                DocumentType = "outros"
)

// IsKnown reports whether t is one of the recognised categories
func (t DocumentType) IsKnown() bool {
	switch t {
	case DocRGFront, DocRGBack, DocCPF, DocBirthMarriage, DocProofOfResidence,
		DocHighSchoolRecord, DocHighSchoolRecordBack, DocElementaryRecord,
		DocSchoolingStatement, DocOther:
		return true
	}
	return false
}
