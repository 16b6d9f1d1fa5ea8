package cas

var CommitPair = commitPair
