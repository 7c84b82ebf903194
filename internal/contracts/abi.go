package contracts

// AuthenticityABI is the subset of the Authenticity registry ABI the indexer uses
const AuthenticityABI = `[
	{"anonymous":false,"type":"event","name":"ManufacturerRegistered","inputs":[
		{"indexed":true,"name":"manufacturerAddress","type":"address"}]},
	{"anonymous":false,"type":"event","name":"ContractCreated","inputs":[
		{"indexed":true,"name":"contractAddress","type":"address"},
		{"indexed":true,"name":"owner","type":"address"}]},
	{"anonymous":false,"type":"event","name":"EIP712DomainChanged","inputs":[]},
	{"type":"function","name":"getManufacturer","stateMutability":"view",
		"inputs":[{"name":"manufacturerAddress","type":"address"}],
		"outputs":[{"name":"","type":"tuple","internalType":"struct Authenticity.Manufacturer","components":[
			{"name":"name","type":"string"},
			{"name":"manufacturerAddress","type":"address"}]}]}
]`

// OwnershipABI is the subset of the Ownership registry ABI the indexer uses
const OwnershipABI = `[
	{"anonymous":false,"type":"event","name":"OwnershipCreated","inputs":[
		{"indexed":true,"name":"contractAddress","type":"address"},
		{"indexed":true,"name":"owner","type":"address"}]},
	{"anonymous":false,"type":"event","name":"UserRegistered","inputs":[
		{"indexed":true,"name":"userAddress","type":"address"},
		{"indexed":false,"name":"username","type":"string"}]},
	{"anonymous":false,"type":"event","name":"OwnershipCode","inputs":[
		{"indexed":true,"name":"ownershipCode","type":"bytes32"},
		{"indexed":false,"name":"itemId","type":"string"},
		{"indexed":true,"name":"tempOwner","type":"address"}]},
	{"anonymous":false,"type":"event","name":"ItemCreated","inputs":[
		{"indexed":false,"name":"itemId","type":"string"},
		{"indexed":true,"name":"owner","type":"address"}]},
	{"anonymous":false,"type":"event","name":"OwnershipClaimed","inputs":[
		{"indexed":true,"name":"newOwner","type":"address"},
		{"indexed":true,"name":"oldOwner","type":"address"}]},
	{"anonymous":false,"type":"event","name":"CodeRevoked","inputs":[
		{"indexed":true,"name":"itemHash","type":"bytes32"}]},
	{"anonymous":false,"type":"event","name":"AuthenticitySet","inputs":[
		{"indexed":true,"name":"authenticityAddress","type":"address"}]},
	{"anonymous":false,"type":"event","name":"EIP712DomainChanged","inputs":[]},
	{"type":"function","name":"getItem","stateMutability":"view",
		"inputs":[{"name":"itemId","type":"string"}],
		"outputs":[{"name":"","type":"tuple","internalType":"struct Ownership.Item","components":[
			{"name":"name","type":"string"},
			{"name":"itemId","type":"string"},
			{"name":"serial","type":"string"},
			{"name":"date","type":"uint256"},
			{"name":"owner","type":"address"},
			{"name":"manufacturer","type":"string"},
			{"name":"metadata","type":"string[]"}]}]}
]`
