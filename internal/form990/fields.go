package form990

import "github.com/openninety/api/internal/models"

// quantity names one logical financial figure extracted from a filing.
type quantity int

const (
	qtyCurrentRevenue quantity = iota
	qtyPreviousRevenue
	qtyCurrentExpenses
	qtyPreviousExpenses
	qtyCurrentAssets
	qtyPreviousAssets
	qtyCurrentEmployees
	qtyPreviousEmployees
)

// financialPaths holds one ordered fallback chain per variant and quantity.
// Paths are dot-separated, relative to the resolved form node, and tried in
// order until one resolves to a parseable value. Each chain mixes the
// post-2013 MeF element names (Amt/Cnt suffixed) with the pre-2013 names so a
// single chain covers the filing years the IRS archives actually contain.
// Fallback order is deliberate: extend chains at the end, never reorder.
var financialPaths = map[Variant]map[quantity][]string{
	Variant990: {
		qtyCurrentRevenue:    {"CYTotalRevenueAmt", "TotalRevenueCurrentYear", "TotalRevenueGrp.TotalRevenueColumnAmt", "TotalRevenue.TotalRevenueColumn"},
		qtyPreviousRevenue:   {"PYTotalRevenueAmt", "TotalRevenuePriorYear"},
		qtyCurrentExpenses:   {"CYTotalExpensesAmt", "TotalExpensesCurrentYear", "TotalFunctionalExpensesGrp.TotalAmt", "TotalFunctionalExpenses.Total"},
		qtyPreviousExpenses:  {"PYTotalExpensesAmt", "TotalExpensesPriorYear"},
		qtyCurrentAssets:     {"TotalAssetsEOYAmt", "TotalAssetsEOY", "Form990TotalAssetsGrp.EOYAmt", "TotalAssets.EOY"},
		qtyPreviousAssets:    {"TotalAssetsBOYAmt", "TotalAssetsBOY", "Form990TotalAssetsGrp.BOYAmt", "TotalAssets.BOY"},
		qtyCurrentEmployees:  {"TotalEmployeeCnt", "TotalNbrEmployees", "EmployeeCnt"},
		qtyPreviousEmployees: {"PYTotalEmployeeCnt", "TotalNbrEmployeesPriorYear"},
	},
	Variant990EZ: {
		qtyCurrentRevenue:    {"TotalRevenueAmt", "TotalRevenue"},
		qtyPreviousRevenue:   {"PYTotalRevenueAmt"},
		qtyCurrentExpenses:   {"TotalExpensesAmt", "TotalExpenses"},
		qtyPreviousExpenses:  {"PYTotalExpensesAmt"},
		qtyCurrentAssets:     {"Form990TotalAssetsGrp.EOYAmt", "TotalAssetsEOYAmt", "TotalAssets.EOY"},
		qtyPreviousAssets:    {"Form990TotalAssetsGrp.BOYAmt", "TotalAssetsBOYAmt", "TotalAssets.BOY"},
		qtyCurrentEmployees:  {"TotalEmployeeCnt", "EmployeeCnt"},
		qtyPreviousEmployees: {"PYTotalEmployeeCnt"},
	},
	Variant990PF: {
		qtyCurrentRevenue:    {"AnalysisOfRevenueAndExpenses.TotalRevAndExpnssAmt", "TotalRevAndExpnssAmt", "AnalysisOfRevenueAndExpenses.TotalRevenueAndExpenses"},
		qtyPreviousRevenue:   {"AnalysisOfRevenueAndExpenses.PYTotalRevAndExpnssAmt"},
		qtyCurrentExpenses:   {"AnalysisOfRevenueAndExpenses.TotalExpensesRevAndExpnssAmt", "TotalExpensesRevAndExpnssAmt", "AnalysisOfRevenueAndExpenses.TotalExpenses"},
		qtyPreviousExpenses:  {"AnalysisOfRevenueAndExpenses.PYTotalExpensesAmt"},
		qtyCurrentAssets:     {"Form990PFBalanceSheetsGrp.TotalAssetsEOYAmt", "TotalAssetsEOYAmt", "Form990PFBalanceSheetGroup.TotalAssetsEOY", "TotalAssetsEOYFMVAmt"},
		qtyPreviousAssets:    {"Form990PFBalanceSheetsGrp.TotalAssetsBOYAmt", "TotalAssetsBOYAmt", "Form990PFBalanceSheetGroup.TotalAssetsBOY"},
		qtyCurrentEmployees:  {"TotalEmployeeCnt"},
		qtyPreviousEmployees: {},
	},
	Variant990T: {
		qtyCurrentRevenue:    {"TotalUBTIAmt", "TotalUnrelatedBusinessTaxblIncmAmt", "GrossIncomeAmt"},
		qtyPreviousRevenue:   {},
		qtyCurrentExpenses:   {"TotalDeductionsAmt", "TotalDeductionAmt"},
		qtyPreviousExpenses:  {},
		qtyCurrentAssets:     {"BookValueAssetsEOYAmt", "TotalAssetsEOYAmt"},
		qtyPreviousAssets:    {},
		qtyCurrentEmployees:  {},
		qtyPreviousEmployees: {},
	},
}

// Header chains run against the whole document tree: the return header sits
// outside ReturnData, and stripped documents may drop the Return wrapper.
var (
	einPaths = []string{
		"Return.ReturnHeader.Filer.EIN",
		"ReturnHeader.Filer.EIN",
	}
	filerNamePaths = []string{
		"Return.ReturnHeader.Filer.BusinessName.BusinessNameLine1Txt",
		"Return.ReturnHeader.Filer.BusinessName.BusinessNameLine1",
		"Return.ReturnHeader.Filer.Name.BusinessNameLine1Txt",
		"Return.ReturnHeader.Filer.Name.BusinessNameLine1",
		"ReturnHeader.Filer.BusinessName.BusinessNameLine1Txt",
		"ReturnHeader.Filer.Name.BusinessNameLine1",
	}
	taxYearPaths = []string{
		"Return.ReturnHeader.TaxYr",
		"Return.ReturnHeader.TaxYear",
		"ReturnHeader.TaxYr",
		"ReturnHeader.TaxYear",
	}
	filingDatePaths = []string{
		"Return.ReturnHeader.ReturnTs",
		"Return.ReturnHeader.Timestamp",
		"ReturnHeader.ReturnTs",
		"ReturnHeader.Timestamp",
	}
)

// Website and mission chains run against the form node; the same names cover
// 990 and 990-EZ, with the EZ exempt-purpose line as the mission of last
// resort.
var (
	websitePaths = []string{"WebsiteAddressTxt", "WebSite", "WebsiteAddress"}
	missionPaths = []string{"ActivityOrMissionDesc", "ActivityOrMissionDescription", "MissionDesc", "PrimaryExemptPurposeTxt"}
)

// personnelTable describes where a variant keeps its officer/director/key-
// employee section and how to read each entry. The three compensation chains
// mirror the filing's columns: base compensation from the filing
// organization, other compensation/benefits, and related-organization
// compensation. A variant without a column carries an empty chain, which
// resolves to zero.
type personnelTable struct {
	collections []string
	nameFields  []string
	firstNames  []string
	lastNames   []string
	titleFields []string
	baseComp    []string
	otherComp   []string
	relatedComp []string
}

var personnelTables = map[Variant]personnelTable{
	Variant990: {
		collections: []string{"Form990PartVIISectionAGrp", "Form990PartVIISectionA"},
		nameFields:  []string{"PersonNm", "NamePerson", "PersonName", "BusinessName.BusinessNameLine1Txt"},
		firstNames:  []string{"PersonFirstNm", "FirstName"},
		lastNames:   []string{"PersonLastNm", "LastName"},
		titleFields: []string{"TitleTxt", "Title"},
		baseComp:    []string{"ReportableCompFromOrgAmt", "ReportableCompFromOrganization"},
		otherComp:   []string{"OtherCompensationAmt", "OtherCompensation"},
		relatedComp: []string{"ReportableCompFromRltdOrgAmt", "ReportableCompFromRelatedOrgs"},
	},
	Variant990EZ: {
		collections: []string{"OfficerDirectorTrusteeEmplGrp", "OfficerDirectorTrusteeEmplInfo", "OfficerDirectorTrusteeKeyEmpl"},
		nameFields:  []string{"PersonNm", "NamePerson", "PersonName"},
		firstNames:  []string{"PersonFirstNm", "FirstName"},
		lastNames:   []string{"PersonLastNm", "LastName"},
		titleFields: []string{"TitleTxt", "Title"},
		baseComp:    []string{"CompensationAmt", "Compensation"},
		otherComp:   []string{"EmployeeBenefitProgramAmt", "ExpenseAccountOtherAllwncAmt"},
		relatedComp: []string{},
	},
	Variant990PF: {
		collections: []string{"OfficerDirTrstKeyEmplInfoGrp.OfficerDirTrstKeyEmplGrp", "OfficerDirTrstKeyEmplInfo.OfficerDirTrstKeyEmpl"},
		nameFields:  []string{"PersonNm", "NamePerson", "PersonName"},
		firstNames:  []string{"PersonFirstNm", "FirstName"},
		lastNames:   []string{"PersonLastNm", "LastName"},
		titleFields: []string{"TitleTxt", "Title"},
		baseComp:    []string{"CompensationAmt", "Compensation"},
		otherComp:   []string{"EmployeeBenefitProgramAmt"},
		relatedComp: []string{"ExpenseAccountOtherAllwncAmt"},
	},
	// 990-T has no officer compensation section.
	Variant990T: {},
}

// expenseChain binds one canonical expense category to its cross-variant
// fallback chain. Chains lead with the full 990 Part IX group totals, then
// the pre-2013 990 names, then the EZ and PF line items, so a single table
// serves every variant; categories whose chain resolves to zero or nothing
// are omitted from the output entirely.
type expenseChain struct {
	category string
	paths    []string
}

var expenseChains = []expenseChain{
	{models.CategoryGrants, []string{"GrantsToDomesticOrgsGrp.TotalAmt", "GrantsToDomesticOrganizations.Total", "GrantsAndSimilarAmountsPaidAmt", "ContributionsGiftsGrantsPaidAmt"}},
	{models.CategoryOfficerCompensation, []string{"CompCurrentOfcrDirectorsGrp.TotalAmt", "CompensationCurrentOfficers.Total", "CompensationOfficersRevAndExpnssAmt"}},
	{models.CategoryOtherSalaries, []string{"OtherSalariesAndWagesGrp.TotalAmt", "OtherSalariesAndWages.Total", "SalariesOtherCompEmplBnftAmt", "OtherEmployeeSalariesWagesAmt"}},
	{models.CategoryPensionBenefits, []string{"PensionPlanContributionsGrp.TotalAmt", "PensionPlanContributions.Total", "PensionPlansEmplBenefitsAmt"}},
	{models.CategoryLegalFees, []string{"FeesForServicesLegalGrp.TotalAmt", "FeesForServicesLegal.Total", "LegalFeesAmt"}},
	{models.CategoryAccountingFees, []string{"FeesForServicesAccountingGrp.TotalAmt", "FeesForServicesAccounting.Total", "AccountingFeesAmt"}},
	{models.CategoryProfFundraising, []string{"FeesForSrvcProfFundraisingGrp.TotalAmt", "FeesForServicesProfFundraising.Total", "ProfessionalFundraisingFeesAmt"}},
	{models.CategoryOtherProfFees, []string{"FeesForServicesOtherGrp.TotalAmt", "FeesForServicesOther.Total", "ProfessionalFeesAmt", "OtherProfessionalFeesAmt"}},
	{models.CategoryOccupancy, []string{"OccupancyGrp.TotalAmt", "Occupancy.Total", "OccupancyRentUtltsAndMaintAmt", "OccupancyAmt"}},
	{models.CategoryTravel, []string{"TravelGrp.TotalAmt", "Travel.Total", "TravelConferencesMeetingsAmt", "TravelAmt"}},
	{models.CategoryOfficeExpenses, []string{"OfficeExpensesGrp.TotalAmt", "OfficeExpenses.Total", "PrintingPublicationsPostageAmt", "PrintingAndPublicationsAmt"}},
	{models.CategoryDepreciation, []string{"DepreciationDepletionGrp.TotalAmt", "DepreciationDepletion.Total", "DepreciationAndDepletionAmt", "DepreciationAmt"}},
}
