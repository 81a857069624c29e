package seed

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	appModels "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/models"
	appRepos "github.com/GuilhermeRVaz/ceeja-painel-vite/internal/app/repositories"
	"github.com/GuilhermeRVaz/ceeja-painel-vite/internal/pkg/apperrors"
)

// Demo enrollment ids created by CreateDemoData
const (
	EnrollmentCamelCase appModels.EnrollmentID = "demo-enrollment-camel"
	EnrollmentSnakeCase appModels.EnrollmentID = "demo-enrollment-snake"
)

var demoEnrollments = []appModels.Enrollment{
	{
		ID:                     EnrollmentCamelCase,
		ConfirmedPersonalData:  datatypes.JSON(`{"nomeCompleto":"Ana Souza","cpf":"123.456.789-09","rgUF":"SP","dataNascimento":"1990-04-12","telefone":"(11) 98888-7777"}`),
		ConfirmedAddressData:   datatypes.JSON(`{"cep":"01310-100","logradouro":"Av. Paulista","numero":"1000","bairro":"Bela Vista","nomeCidade":"Sao Paulo","ufCidade":"SP","zona":"urbana"}`),
		ConfirmedSchoolingData: datatypes.JSON(`{"nivelEnsino":"Ensino Medio","ultimaSerieConcluida":"1a serie","estudouNoCeeja":false,"aceitouTermos":true}`),
	},
	{
		ID:                     EnrollmentSnakeCase,
		ConfirmedPersonalData:  datatypes.JSON(`{"nome_completo":"Bruno Lima","tem_nome_social":false,"nascimento_uf":"MG","is_pcd":false}`),
		ConfirmedAddressData:   datatypes.JSON(`{"cep":"30130000","logradouro":"Rua da Bahia","nomeCidade":"Belo Horizonte","zona":"Rural"}`),
		ConfirmedSchoolingData: datatypes.JSON(`{"nivel_ensino":"Ensino Fundamental","tem_progressao_parcial":true,"progressao_parcial_disciplinas":[{"disciplina":"Matematica"}]}`),
	},
}

var demoDocuments = []appModels.DocumentRecord{
	{ID: "demo-doc-rg", EnrollmentID: appModels.DocumentSetKey(EnrollmentCamelCase), FileName: "rg_frente.jpg", StoragePath: "demo-enrollment-camel/rg_frente.jpg", DocumentType: appModels.DocRGFront},
	{ID: "demo-doc-cpf", EnrollmentID: appModels.DocumentSetKey(EnrollmentCamelCase), FileName: "cpf.pdf", StoragePath: "demo-enrollment-camel/cpf.pdf", DocumentType: appModels.DocCPF},
	{ID: "demo-doc-residence", EnrollmentID: appModels.DocumentSetKey(EnrollmentSnakeCase), FileName: "comprovante.pdf", StoragePath: "demo-enrollment-snake/comprovante.pdf", DocumentType: appModels.DocProofOfResidence},
}

// CreateDemoData inserts sample enrollments and their document scans if they
// don't exist. Records already present are left untouched.
func CreateDemoData(ctx context.Context, repos *appRepos.Repositories, lgr zerolog.Logger) error {
	lgr.Info().Msg("Checking/Creating demo enrollments...")
	var finalErr error // collect errors without stopping the process

	created := 0
	for i := range demoEnrollments {
		rec := demoEnrollments[i]
		err := repos.Enrollments.Create(ctx, &rec)
		switch {
		case err == nil:
			created++
		case errors.Is(err, apperrors.ErrResourceAlreadyExists):
		default:
			lgr.Error().Err(err).Str("enrollmentId", rec.ID.String()).Msg("Error creating demo enrollment")
			finalErr = errors.Join(finalErr, err)
		}
	}

	for i := range demoDocuments {
		doc := demoDocuments[i]
		err := repos.Documents.Create(ctx, &doc)
		if err != nil && !errors.Is(err, apperrors.ErrResourceAlreadyExists) {
			lgr.Error().Err(err).Str("documentId", string(doc.ID)).Msg("Error creating demo document")
			finalErr = errors.Join(finalErr, err)
		}
	}

	if finalErr != nil {
		lgr.Warn().Err(finalErr).Msg("Finished creating demo data with some errors.")
	} else {
		lgr.Info().Int("created", created).Msg("Finished checking/creating demo data.")
	}
	return finalErr
}
