package rural

// DictionaryVersion identifies the vocabulary revision in use. Bump whenever
// the variant tables change so correction confidence data can be compared
// across deployments.
const DictionaryVersion = "2025.2"

// Dictionary is the static vocabulary shared by the normalizer, the spelling
// corrector and the intent classifier. Keys are canonical terms; values are
// the dialectal, regional and typo variants observed in rural Brazilian
// Portuguese WhatsApp traffic.
type Dictionary struct {
	// Expressions maps everyday canonical expressions to rural variants.
	Expressions map[string][]string
	// Terms maps canonical aquaculture terms to their variants. Canonical
	// keys double as the technical-term vocabulary for the classifier.
	Terms map[string][]string
	// AudioConfusions lists transcription variants produced by speech-to-text
	// for domain terms. Checked by the corrector before any fuzzy matching.
	AudioConfusions map[string][]string
	// BaseWords is common correct Portuguese outside the domain vocabulary.
	BaseWords []string
}

// NewDictionary returns the built-in vocabulary.
func NewDictionary() *Dictionary {
	return &Dictionary{
		Expressions: map[string][]string{
			// greetings
			"e aí":      {"e ai", "eae", "eai", "e ae", "iae"},
			"tudo bem":  {"tudo bom", "tudo certo", "tudo joia", "tudo jóia", "tudo beleza"},
			"como vai":  {"como que tá", "como tá", "como que vai", "comu vai"},
			"oi":        {"ôi", "oie", "oii", "ooii"},
			"tchau":     {"xau", "chau", "tchal", "falou"},
			"obrigado":  {"brigado", "obrigad", "vlw", "valeu"},
			// confirmation
			"sim":      {"si", "isso", "ahan", "uhum", "aham"},
			"não":      {"nao", "num"},
			"certo":    {"serto", "certu", "tá certo", "ta certo"},
			"pode ser": {"pode se", "podi ser", "podi se"},
			// pronouns and address forms
			"você":    {"voce", "vc", "ocê", "cê", "vosmicê"},
			"vocês":   {"vcs", "ocês", "cês", "vosmicês"},
			"senhor":  {"sr", "seo"},
			"senhora": {"sra", "srª"},
			// time
			"agora":  {"gora", "agor", "agr"},
			"hoje":   {"hj", "hoji"},
			"amanhã": {"amanha"},
			"ontem":  {"onte", "onti"},
			// quantity
			"muito":    {"mt", "mto", "mutu"},
			"pouco":    {"poku", "pokinho", "poquinho"},
			"bastante": {"bastanti", "bastonti"},
			// place
			"aqui": {"aki"},
			"aí":   {"ae"},
		},
		Terms: map[string][]string{
			// fish and fingerlings
			"alevino":  {"alevin", "alevinhu", "peixinho", "filhote", "filhotinho"},
			"alevinos": {"alevins", "alevinhos", "peixinhos", "filhotes", "filhotinhos"},
			"tilápia":  {"tilapia", "tilaria", "tilapa", "tirapía"},
			"tilápias": {"tilapias", "tilarias", "tilapas", "tirapías"},
			"tambaqui": {"tambaki", "tambaku", "tambacu"},
			"pirarucu": {"pirauku", "piraruku"},
			"pintado":  {"pintadu"},
			"pacu":     {"paku"},
			"bagre":    {"bagri"},
			"dourado":  {"dourao"},
			"traíra":   {"traira"},
			"tucunaré": {"tucunare", "tucumare"},
			// farm structures
			"viveiro":  {"viveiru", "viveru", "açudi"},
			"viveiros": {"viveirus", "viverus", "açudis"},
			"tanque":   {"tanki"},
			"tanques":  {"tankis"},
			"açude":    {"asude", "assude"},
			"lagoa":    {"lagua", "lágua"},
			"barragem": {"barrage", "barragi"},
			"represa":  {"repreza"},
			// husbandry and feeding
			"ração":       {"racao", "rasao", "rasaum", "trato"},
			"alimentação": {"alimentacao"},
			"biometria":   {"pesage", "pesagem", "pesar peixe"},
			"despesca":    {"colheita"},
			"povoamento":  {"povoamentu", "soltar peixe"},
			// water quality
			"água":        {"agua", "águia", "ágia"},
			"ph":          {"pê agá", "pe aga", "acidez"},
			"oxigênio":    {"oxigenio", "oxigeniu", "ar na água"},
			"amônia":      {"amonia"},
			"nitrito":     {"nitritu"},
			"temperatura": {"temperatur", "calor da água"},
			// equipment
			"aerador":    {"areador", "areadô", "ventilador de água"},
			"filtro":     {"filtru"},
			"bomba":      {"bomba d'água"},
			"compressor": {"compressô", "comprenssor"},
			"rede":       {"redi", "tarrafa"},
			// disease and losses
			"doença":      {"doensa"},
			"mortalidade": {"mortalidadi", "morte de peixe", "peixe morto"},
			"fungos":      {"fungu", "limo"},
			"bactérias":   {"bacteria", "bacterias"},
			"parasitas":   {"parasita", "verme"},
			// reproduction
			"reprodução": {"reproducao", "criaçao"},
			"desova":     {"dizova", "botar ovo"},
			"larva":      {"larvinha"},
			"reprodutor": {"reprodutô", "matriz"},
			// commerce
			"venda":   {"venda de peixe"},
			"compra":  {"conpra"},
			"preço":   {"preco", "presso"},
			"lucro":   {"lukro", "rendimento"},
			"mercado": {"mercadu", "feira"},
			// measurements
			"metro":      {"metru"},
			"hectare":    {"hectari", "alqueire"},
			"litro":      {"litru"},
			"quilo":      {"kilo"},
			"densidade":  {"densidadi", "quantidade por metro"},
			"centímetro": {"centimetru"},
		},
		AudioConfusions: map[string][]string{
			"peixe":    {"peace", "peix", "peach"},
			"água":     {"agua", "agra", "águia"},
			"tilápia":  {"tilapia", "tilaria", "tilapa"},
			"tambaqui": {"tambaki", "tambacu", "tambaku"},
			"alevino":  {"alevin", "alevina", "elevino"},
			"viveiro":  {"viveiru", "vivero", "bibeiro"},
			"ração":    {"racao", "rasao", "raxao"},
			"oxigênio": {"oxigenio", "oxigeniu"},
			"ph":       {"pe agá", "pê agá", "peh", "pe h"},
		},
		BaseWords: []string{
			"obrigado", "muito", "bom", "dia", "noite", "tarde", "como", "está",
			"você", "seu", "dona", "senhor", "senhora", "aqui", "ali", "onde",
			"quando", "quanto", "porque", "para", "com", "sem", "mais", "menos",
			"melhor", "pior", "grande", "pequeno", "novo", "velho", "certo",
			"errado", "sim", "não", "talvez", "claro", "problema", "solução",
			"ajuda", "dúvida", "pergunta", "resposta", "informação", "preço",
			"valor", "comprar", "vender", "dinheiro", "pagamento", "quero",
			"preciso", "sobre", "falar", "saber", "fazer", "ter", "ver",
			"tem", "tenho", "tinha", "vai", "foi", "ser", "era", "são", "está",
			"peixe", "meu", "minha", "uma", "começando", "criação", "cria",
		},
	}
}

// CanonicalTerms returns the domain vocabulary in no particular order.
func (d *Dictionary) CanonicalTerms() []string {
	terms := make([]string, 0, len(d.Terms))
	for term := range d.Terms {
		terms = append(terms, term)
	}
	return terms
}

// Vocabulary returns every word the corrector should consider correct:
// canonical terms, their variants, canonical expressions and base words.
func (d *Dictionary) Vocabulary() map[string]struct{} {
	vocab := make(map[string]struct{}, 512)
	for term, variants := range d.Terms {
		vocab[term] = struct{}{}
		for _, v := range variants {
			vocab[v] = struct{}{}
		}
	}
	for expr := range d.Expressions {
		vocab[expr] = struct{}{}
	}
	for _, w := range d.BaseWords {
		vocab[w] = struct{}{}
	}
	return vocab
}

// Keyword tiers used by the classifier and the urgency detector.

var purchaseKeywords = []string{"quero", "preciso", "interesse", "comprar", "quanto", "preço", "valor"}

var technicalQuestionKeywords = []string{"como", "quando", "onde", "porque", "dúvida", "ajuda", "explica"}

var productionProblemKeywords = []string{"morreu", "morrendo", "doente", "problema", "ruim", "não tá bem"}

var greetingKeywords = []string{"oi", "olá", "bom dia", "boa tarde", "boa noite", "e aí"}

var farewellKeywords = []string{"tchau", "até logo", "falou", "obrigado", "valeu"}

var confirmationKeywords = []string{"sim", "isso", "certo", "pode ser", "tá bom"}

var highUrgencyKeywords = []string{
	"urgente", "rápido", "agora", "hoje", "já", "morrendo",
	"doente", "problema grave", "ajuda", "socorro", "mortalidade", "morreu",
}

var mediumUrgencyKeywords = []string{"preciso", "importante", "quando", "logo", "breve", "essa semana"}

var affirmingKeywords = []string{"pode crer", "confio", "beleza", "fechado", "combinado"}

var hedgingKeywords = []string{"não sei", "talvez", "será", "dúvida", "receio"}

var emotionKeywords = map[Emotion][]string{
	EmotionJoy:       {"que bom", "opa", "show", "massa", "top", "bacana"},
	EmotionSurprise:  {"nossa", "caramba", "eita", "ô loco"},
	EmotionConcern:   {"eita", "xi", "rapaz", "puxa"},
	EmotionAgreement: {"exato", "isso aí", "pode crer", "é isso mesmo"},
	EmotionDenial:    {"que nada", "não é não", "imagina"},
}
