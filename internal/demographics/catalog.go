package demographics

// Topic identifies one census dataset to fetch, with the dimension its
// categories live under and the category selection to request.
type Topic struct {
	Name      string
	Dataset   string
	Dimension string
	Selection string
}

// Catalog is the fixed set of census topics fetched for every resolved
// postcode. Each topic is fetched independently; one failing never blocks
// the others.
var Catalog = []Topic{
	{Name: "Sex", Dataset: "NM_2028_1", Dimension: "c_sex", Selection: "0...2"},
	{Name: "Age", Dataset: "NM_2020_1", Dimension: "c2021_age_12", Selection: "0...11"},
	{Name: "Country of Birth", Dataset: "NM_2024_1", Dimension: "c2021_cob_12", Selection: "0...11"},
	{Name: "Length of Residence", Dataset: "NM_2026_1", Dimension: "c2021_resuk_6", Selection: "0...5"},
	{Name: "Living Arrangements", Dataset: "NM_2025_1", Dimension: "c2021_larpuk_12", Selection: "0...11"},
	{Name: "Household Composition", Dataset: "NM_2023_1", Dimension: "c2021_hhcomp_15", Selection: "0...14"},
	{Name: "Ethnic Group", Dataset: "NM_2041_1", Dimension: "c2021_eth_20", Selection: "0...19"},
	{Name: "National Identity", Dataset: "NM_2046_1", Dimension: "c2021_natid_10", Selection: "0...9"},
	{Name: "Religion", Dataset: "NM_2049_1", Dimension: "c2021_religion_10", Selection: "0...9"},
	{Name: "Main Language", Dataset: "NM_2052_1", Dimension: "c2021_language_11", Selection: "0...10"},
	{Name: "Economic Activity", Dataset: "NM_2083_1", Dimension: "c2021_eastat_20", Selection: "0...19"},
	{Name: "Hours Worked", Dataset: "NM_2076_1", Dimension: "c2021_hours_5", Selection: "0...4"},
	{Name: "Industry", Dataset: "NM_2078_1", Dimension: "c2021_ind_19", Selection: "0...18"},
	{Name: "Occupation", Dataset: "NM_2080_1", Dimension: "c2021_occ_10", Selection: "0...9"},
	{Name: "Travel to Work", Dataset: "NM_2086_1", Dimension: "c2021_ttwmeth_12", Selection: "0...11"},
	{Name: "Tenure", Dataset: "NM_2072_1", Dimension: "c2021_tenure_9", Selection: "0...8"},
	{Name: "Accommodation Type", Dataset: "NM_2062_1", Dimension: "c2021_acctype_9", Selection: "0...8"},
	{Name: "Highest Qualification", Dataset: "NM_2084_1", Dimension: "c2021_hiqual_8", Selection: "0...7"},
	{Name: "Student Status", Dataset: "NM_2085_1", Dimension: "c2021_student_3", Selection: "0...2"},
	{Name: "General Health", Dataset: "NM_2055_1", Dimension: "c2021_health_6", Selection: "0...5"},
	{Name: "Sexual Orientation", Dataset: "NM_2094_1", Dimension: "c2021_sexor_6", Selection: "0...5"},
}
