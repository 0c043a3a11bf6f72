package selene

const PackageName = "selene"
const PackageVersion = "0.1.0"
const PackageCopyRight = PackageName + " " + PackageVersion +
	" - register bytecode compiler for the selene language"
