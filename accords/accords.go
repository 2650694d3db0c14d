// Package accords models the dataset of French company agreements on
// sustainable mobility and the values shared by the explorer packages.
//
// The sub-packages split the explorer into its moving parts: store loads the
// dataset into DuckDB, filter holds the user's selections, query turns them
// into a predicate, coordinator debounces and orders query execution, and
// aggregate/page/view derive what clients display from the current RowSet.
package accords

// Column names of the source dataset.
const (
	ColID            = "ID"
	ColSIRET         = "SIRET"
	ColOrganization  = "RAISON_SOCIALE"
	ColTitle         = "TITRE_TXT"
	ColSector        = "SECTEUR"
	ColAPECode       = "CODE_APE"
	ColUnions        = "SYNDICATS"
	ColNumber        = "NUMERO"
	ColMeasure       = "mesure_extraite"
	ColExcerpt       = "extrait_chunk"
	ColKeyword       = "theme_recherche"
	ColLegifranceURL = "url_legifrance"
	ColDepositDate   = "DATE_DEPOT"
	ColTextDate      = "DATE_TEXTE"
	ColEffectiveDate = "DATE_EFFET"
	ColEndDate       = "DATE_FIN"

	ColMobility       = "est_mobilites_durables_v2"
	ColMobilityLegacy = "est_mobilites_durables"
	ColMeans          = "moyens_materiels_v2"
	ColMeansLegacy    = "moyens_materiels"

	ColLatitude       = "localisation_lat"
	ColLongitude      = "localisation_lon"
	ColRegion         = "localisation_region"
	ColDepartment     = "localisation_departement_nom"
	ColDepartmentCode = "localisation_departement_code"
	ColEPCI           = "localisation_epci_nom"
	ColEPCIID         = "localisation_epci_id"
	ColCommune        = "localisation_nom_commune"
	ColCommuneCode    = "localisation_commune"
)

// DefaultTable is the table every load populates.
const DefaultTable = "agreements"

// DefaultDatasetURL is the published enriched dataset.
const DefaultDatasetURL = "https://huggingface.co/datasets/alihmaou/202510_HM2025_ACCO_ACCORDS_MOBILITES/resolve/main/202511_IDFM_ACCO_ACCORDS_MOBILITES_MESURES_LOCALISATION.parquet"

// IDFRegion is the literal matched by the Île-de-France toggle.
const IDFRegion = "Île-de-France"

// MobilityValues are the normalized flag values meaning "sustainable mobility".
var MobilityValues = []string{"true", "1", "oui"}
