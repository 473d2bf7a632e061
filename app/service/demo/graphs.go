package demo

import "grapebot/app/service/graph"

func node(id, label, nodeType string) graph.Node {
	return graph.Node{ID: id, Label: label, Type: nodeType}
}

func link(source, relation, target string) graph.Link {
	return graph.Link{Source: source, Target: target, Relation: relation}
}

// patientGraph is the full canned patient record view.
func patientGraph() ([]graph.Node, []graph.Link) {
	nodes := []graph.Node{
		node("expat:PatientJohn", "Patient John", "patient"),
		node("excond:DiabetesMellitus", "Diabetes Mellitus", "condition"),
		node("excond:Hypertension", "Hypertension", "condition"),
		node("excond:ChronicKidneyDisease", "Chronic Kidney Disease", "condition"),
		node("excond:Nephrectomy2005", "Nephrectomy (2005)", "procedure"),
		node("excommon:AbdominalPain", "Abdominal Pain", "symptom"),
		node("excommon:Fatigue", "Fatigue", "symptom"),
		node("exmed:Metamorphine", "Metamorphine", "medication"),
		node("exmed:Lisinopril", "Lisinopril", "medication"),
		node("exmed:Atorvastatin", "Atorvastatin", "medication"),
	}
	links := []graph.Link{
		link("expat:PatientJohn", "hasCondition", "excond:DiabetesMellitus"),
		link("expat:PatientJohn", "hasCondition", "excond:Hypertension"),
		link("expat:PatientJohn", "hasCondition", "excond:ChronicKidneyDisease"),
		link("expat:PatientJohn", "hasProcedure", "excond:Nephrectomy2005"),
		link("expat:PatientJohn", "hasSymptom", "excommon:AbdominalPain"),
		link("expat:PatientJohn", "hasSymptom", "excommon:Fatigue"),
		link("expat:PatientJohn", "takesMedication", "exmed:Metamorphine"),
		link("expat:PatientJohn", "takesMedication", "exmed:Lisinopril"),
		link("expat:PatientJohn", "takesMedication", "exmed:Atorvastatin"),
	}

	return nodes, links
}

// pathfindingGraph shows both discovered chains between E27B and the symptom.
func pathfindingGraph() ([]graph.Node, []graph.Link) {
	nodes := []graph.Node{
		node("exdrug:E27B", "Substance E27B", "substance"),
		node("excommon:StomachDiscomfort", "Stomach Discomfort", "symptom"),
		node("excommon:AbdominalPain", "Abdominal Pain", "symptom"),
		node("excond:PostNephrectomyStatus", "Post-Nephrectomy Status", "condition"),
	}
	links := []graph.Link{
		link("exdrug:E27B", "causesSymptom", "excommon:StomachDiscomfort"),
		link("excommon:StomachDiscomfort", "semanticallySimilarTo", "excommon:AbdominalPain"),
		link("exdrug:E27B", "contraindicatedFor", "excond:PostNephrectomyStatus"),
		link("excond:PostNephrectomyStatus", "typicalSymptom", "excommon:AbdominalPain"),
	}

	return nodes, links
}

// validationGraph includes the inferred contraindication and the alternative.
func validationGraph() ([]graph.Node, []graph.Link) {
	nodes := []graph.Node{
		node("expat:PatientJohn", "Patient John", "patient"),
		node("excond:Nephrectomy2005", "Nephrectomy (2005)", "procedure"),
		node("excond:PostNephrectomyStatus", "Post-Nephrectomy Status", "condition"),
		node("exmed:Metamorphine", "Metamorphine ⚠️", "medication"),
		node("exdrug:E27B", "Substance E27B", "substance"),
		node("excond:DiabetesMellitus", "Diabetes Mellitus", "condition"),
		node("exmed:Glucorin", "Glucorin ✓", "medication"),
	}
	links := []graph.Link{
		link("expat:PatientJohn", "hasProcedure", "excond:Nephrectomy2005"),
		link("excond:Nephrectomy2005", "resultsInCondition", "excond:PostNephrectomyStatus"),
		link("expat:PatientJohn", "hasCondition", "excond:DiabetesMellitus"),
		link("exmed:Metamorphine", "hasActiveSubstance", "exdrug:E27B"),
		link("exdrug:E27B", "contraindicatedFor", "excond:PostNephrectomyStatus"),
		link("exmed:Metamorphine", "contraindicatedFor", "excond:PostNephrectomyStatus"),
		link("exmed:Metamorphine", "indicatedFor", "excond:DiabetesMellitus"),
		link("exmed:Glucorin", "indicatedFor", "excond:DiabetesMellitus"),
	}

	return nodes, links
}

// fullGraph is the composite storyboard graph for the autonomous run.
func fullGraph() ([]graph.Node, []graph.Link) {
	nodes := []graph.Node{
		node("expat:PatientJohn", "Patient John", "patient"),
		node("exmed:Metamorphine", "Metamorphine", "medication"),
		node("exdrug:E27B", "Substance E27B", "substance"),
		node("excond:PostNephrectomyStatus", "Post-Nephrectomy Status", "condition"),
		node("excommon:StomachDiscomfort", "Stomach Discomfort", "symptom"),
		node("excommon:AbdominalPain", "Abdominal Pain", "symptom"),
		node("excond:Nephrectomy2005", "Nephrectomy (2005)", "procedure"),
		node("excond:DiabetesMellitus", "Diabetes Mellitus", "condition"),
		node("exmed:Glucorin", "Glucorin", "medication"),
	}
	links := []graph.Link{
		link("expat:PatientJohn", "hasCondition", "excond:DiabetesMellitus"),
		link("expat:PatientJohn", "hasProcedure", "excond:Nephrectomy2005"),
		link("expat:PatientJohn", "hasSymptom", "excommon:AbdominalPain"),
		link("expat:PatientJohn", "takesMedication", "exmed:Metamorphine"),
		link("excond:Nephrectomy2005", "resultsInCondition", "excond:PostNephrectomyStatus"),
		link("exmed:Metamorphine", "hasActiveSubstance", "exdrug:E27B"),
		link("exmed:Metamorphine", "indicatedFor", "excond:DiabetesMellitus"),
		link("exdrug:E27B", "causesSymptom", "excommon:StomachDiscomfort"),
		link("excommon:StomachDiscomfort", "semanticallySimilarTo", "excommon:AbdominalPain"),
		link("exdrug:E27B", "contraindicatedFor", "excond:PostNephrectomyStatus"),
		link("excond:PostNephrectomyStatus", "typicalSymptom", "excommon:AbdominalPain"),
		link("exmed:Metamorphine", "contraindicatedFor", "excond:PostNephrectomyStatus"),
		link("exmed:Glucorin", "indicatedFor", "excond:DiabetesMellitus"),
	}

	return nodes, links
}
